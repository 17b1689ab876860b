package seed

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	sampleEmployeeName     = "John Doe"
	sampleContractNumber   = "GS-35F-123ABC"
	defaultOverheadRate    = 0.35
	defaultGARate          = 0.15
	defaultProfitMargin    = 0.10
	defaultCompensationCap = 207000
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way: a default active rate
// set for the current fiscal year, plus one sample employee with fringe
// benefits assigned to a sample T&M contract.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureCompanyRates(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureSampleEmployee(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureSampleContract(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCompanyRates(tx *sql.Tx, stats *Stats) error {
	fiscalYear := time.Now().Year()

	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM company_rates WHERE fiscal_year = ? AND active LIMIT 1)
	`, fiscalYear).Scan(&exists); err != nil {
		return fmt.Errorf("check company rates existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO company_rates (fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap, active)
		VALUES (?, ?, ?, ?, ?, TRUE)
	`, fiscalYear, defaultOverheadRate, defaultGARate, defaultProfitMargin, defaultCompensationCap); err != nil {
		return fmt.Errorf("insert default company rates: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureSampleEmployee(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM employees WHERE name = ? LIMIT 1)`, sampleEmployeeName).Scan(&exists); err != nil {
		return fmt.Errorf("check sample employee existence: %w", err)
	}
	if exists {
		return nil
	}

	result, err := tx.Exec(`
		INSERT INTO employees (name, title, base_salary, hire_date, utilization_target)
		VALUES (?, 'Senior Software Engineer', 150000, '2023-01-15', 1800)
	`, sampleEmployeeName)
	if err != nil {
		return fmt.Errorf("insert sample employee: %w", err)
	}

	employeeID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sample employee id: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO fringe_benefits (
			employee_id, health_insurance, dental_insurance, vision_insurance,
			ltd_insurance, std_insurance, life_insurance, training_budget,
			match_401k, pto_cost, cell_allowance, internet_allowance
		)
		VALUES (?, 12000, 1200, 600, 500, 300, 400, 2000, 6000, 11538, 1200, 600)
	`, employeeID); err != nil {
		return fmt.Errorf("insert sample fringe benefits: %w", err)
	}

	stats.Inserts += 2
	return nil
}

func ensureSampleContract(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM contracts WHERE contract_number = ? LIMIT 1)`, sampleContractNumber).Scan(&exists); err != nil {
		return fmt.Errorf("check sample contract existence: %w", err)
	}
	if exists {
		return nil
	}

	result, err := tx.Exec(`
		INSERT INTO contracts (contract_number, contract_name, customer, start_date, end_date, contract_type, total_value)
		VALUES (?, 'IT Modernization Support', 'Department of Defense', '2024-01-01', '2024-12-31', 'T&M', 5000000)
	`, sampleContractNumber)
	if err != nil {
		return fmt.Errorf("insert sample contract: %w", err)
	}

	contractID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sample contract id: %w", err)
	}

	var employeeID int64
	err = tx.QueryRow(`SELECT id FROM employees WHERE name = ?`, sampleEmployeeName).Scan(&employeeID)
	if err != nil {
		return fmt.Errorf("look up sample employee: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO employee_contracts (employee_id, contract_id, allocation_percentage, bill_rate, start_date)
		VALUES (?, ?, 100, 175, '2024-01-01')
	`, employeeID, contractID); err != nil {
		return fmt.Errorf("insert sample contract assignment: %w", err)
	}

	stats.Inserts += 2
	return nil
}
