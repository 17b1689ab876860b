package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/govcontools/ratedesk/internal/rates"
)

var errNoActiveRates = errors.New("no active company rates for fiscal year")

const (
	defaultOverheadRate    = 0.35
	defaultGARate          = 0.15
	defaultProfitMargin    = 0.10
	defaultCompensationCap = 207000.0
)

type companyRatesRecord struct {
	ID                 int64   `json:"id"`
	FiscalYear         int     `json:"fiscalYear"`
	OverheadRate       float64 `json:"overheadRate"`
	GARate             float64 `json:"gaRate"`
	TargetProfitMargin float64 `json:"targetProfitMargin"`
	CompensationCap    float64 `json:"compensationCap"`
	Active             bool    `json:"active"`
}

// companyRatesInput fields are pointers so a partial update can leave the
// stored values alone.
type companyRatesInput struct {
	OverheadRate       *float64 `json:"overheadRate"`
	GARate             *float64 `json:"gaRate"`
	TargetProfitMargin *float64 `json:"targetProfitMargin"`
	CompensationCap    *float64 `json:"compensationCap"`
}

// companyRatesEcho is the rate-set summary attached to calculation
// responses. Indirect rates are percentages here.
type companyRatesEcho struct {
	FiscalYear         int     `json:"fiscalYear"`
	OverheadRate       float64 `json:"overheadRate"`
	GARate             float64 `json:"gaRate"`
	TargetProfitMargin float64 `json:"targetProfitMargin"`
	CompensationCap    float64 `json:"compensationCap"`
}

func echoCompanyRates(rs rates.CompanyRateSet) companyRatesEcho {
	return companyRatesEcho{
		FiscalYear:         rs.FiscalYear,
		OverheadRate:       rs.OverheadRate * 100,
		GARate:             rs.GARate * 100,
		TargetProfitMargin: rs.TargetProfitMargin * 100,
		CompensationCap:    rs.CompensationCap,
	}
}

func currentFiscalYear() int {
	return time.Now().Year()
}

// activeCompanyRates loads the single active rate set for a fiscal year.
func (s *server) activeCompanyRates(fiscalYear int) (rates.CompanyRateSet, error) {
	var rs rates.CompanyRateSet
	err := s.db.QueryRow(`
		SELECT fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap
		FROM company_rates
		WHERE fiscal_year = ? AND active
	`, fiscalYear).Scan(&rs.FiscalYear, &rs.OverheadRate, &rs.GARate, &rs.TargetProfitMargin, &rs.CompensationCap)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.CompanyRateSet{}, errNoActiveRates
	}
	if err != nil {
		return rates.CompanyRateSet{}, fmt.Errorf("query company rates: %w", err)
	}
	return rs, nil
}

func (s *server) handleGetCompanyRates(w http.ResponseWriter, r *http.Request) {
	fiscalYear := currentFiscalYear()

	record, err := s.companyRatesRecord(fiscalYear)
	if errors.Is(err, errNoActiveRates) {
		// First request of the fiscal year: create the default set.
		if _, insErr := s.db.Exec(`
			INSERT INTO company_rates (fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap, active)
			VALUES (?, ?, ?, ?, ?, TRUE)
		`, fiscalYear, defaultOverheadRate, defaultGARate, defaultProfitMargin, defaultCompensationCap); insErr != nil {
			zerolog.Ctx(r.Context()).Error().Err(insErr).Msg("failed to create default company rates")
			writeError(w, r, http.StatusInternalServerError, "failed to create default company rates")
			return
		}
		record, err = s.companyRatesRecord(fiscalYear)
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load company rates")
		writeError(w, r, http.StatusInternalServerError, "failed to load company rates")
		return
	}

	writeJSON(w, r, http.StatusOK, record)
}

func (s *server) companyRatesRecord(fiscalYear int) (companyRatesRecord, error) {
	var rec companyRatesRecord
	err := s.db.QueryRow(`
		SELECT id, fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap, active
		FROM company_rates
		WHERE fiscal_year = ? AND active
	`, fiscalYear).Scan(
		&rec.ID, &rec.FiscalYear, &rec.OverheadRate, &rec.GARate,
		&rec.TargetProfitMargin, &rec.CompensationCap, &rec.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return companyRatesRecord{}, errNoActiveRates
	}
	if err != nil {
		return companyRatesRecord{}, fmt.Errorf("query company rates record: %w", err)
	}
	return rec, nil
}

func (s *server) handleUpdateCompanyRates(w http.ResponseWriter, r *http.Request) {
	var input companyRatesInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []string
	if input.OverheadRate != nil && (*input.OverheadRate < 0 || *input.OverheadRate > 1) {
		errs = append(errs, "Overhead rate must be a decimal between 0 and 1")
	}
	if input.GARate != nil && (*input.GARate < 0 || *input.GARate > 1) {
		errs = append(errs, "G&A rate must be a decimal between 0 and 1")
	}
	if input.TargetProfitMargin != nil && (*input.TargetProfitMargin < 0 || *input.TargetProfitMargin > 1) {
		errs = append(errs, "Target profit margin must be a decimal between 0 and 1")
	}
	if len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	// Omitted fields keep the stored values; with no stored set yet they
	// fall back to the defaults.
	fiscalYear := currentFiscalYear()
	current, err := s.activeCompanyRates(fiscalYear)
	if errors.Is(err, errNoActiveRates) {
		current = rates.CompanyRateSet{
			OverheadRate:       defaultOverheadRate,
			GARate:             defaultGARate,
			TargetProfitMargin: defaultProfitMargin,
			CompensationCap:    defaultCompensationCap,
		}
	} else if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load company rates")
		writeError(w, r, http.StatusInternalServerError, "failed to load company rates")
		return
	}

	if input.OverheadRate != nil {
		current.OverheadRate = *input.OverheadRate
	}
	if input.GARate != nil {
		current.GARate = *input.GARate
	}
	if input.TargetProfitMargin != nil {
		current.TargetProfitMargin = *input.TargetProfitMargin
	}
	if input.CompensationCap != nil && *input.CompensationCap > 0 {
		current.CompensationCap = *input.CompensationCap
	}

	result, err := s.db.Exec(`
		UPDATE company_rates
		SET overhead_rate = ?, ga_rate = ?, target_profit_margin = ?, compensation_cap = ?, updated_at = CURRENT_TIMESTAMP
		WHERE fiscal_year = ? AND active
	`, current.OverheadRate, current.GARate, current.TargetProfitMargin, current.CompensationCap, fiscalYear)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update company rates")
		writeError(w, r, http.StatusInternalServerError, "failed to update company rates")
		return
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		_, err = s.db.Exec(`
			INSERT INTO company_rates (fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap, active)
			VALUES (?, ?, ?, ?, ?, TRUE)
		`, fiscalYear, current.OverheadRate, current.GARate, current.TargetProfitMargin, current.CompensationCap)
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to save company rates")
		writeError(w, r, http.StatusInternalServerError, "failed to save company rates")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Rates updated successfully"})
}

type companySummaryEmployee struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Title             string  `json:"title"`
	UtilizationTarget int     `json:"utilizationTarget"`
	WrapRate          float64 `json:"wrapRate"`
	AnnualCost        float64 `json:"annualCost"`
	AnnualRevenue     float64 `json:"annualRevenue"`
	AnnualProfit      float64 `json:"annualProfit"`
}

func (s *server) handleCompanySummary(w http.ResponseWriter, r *http.Request) {
	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	employees, err := s.listEmployees()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load employees")
		writeError(w, r, http.StatusInternalServerError, "failed to load employees")
		return
	}

	totalRevenue := 0.0
	totalCost := 0.0
	details := make([]companySummaryEmployee, 0, len(employees))

	for _, emp := range employees {
		structure, err := rates.BuildRateStructure(
			rates.Employee{Name: emp.Name, Title: emp.Title, BaseSalary: emp.BaseSalary},
			emp.FringeBenefits.toSet(),
			companyRates,
			emp.UtilizationTarget,
			"",
		)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Int64("employee_id", emp.ID).Msg("skipping employee in summary")
			continue
		}

		annualCost := structure.Costs.TotalBurdenedCost * float64(emp.UtilizationTarget)

		assignments, err := s.listEmployeeAssignments(emp.ID)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Int64("employee_id", emp.ID).Msg("failed to load assignments")
			writeError(w, r, http.StatusInternalServerError, "failed to load contract assignments")
			return
		}

		annualRevenue := 0.0
		for _, a := range assignments {
			hours := float64(emp.UtilizationTarget) * a.AllocationPercentage / 100
			annualRevenue += a.BillRate * hours
		}

		totalRevenue += annualRevenue
		totalCost += annualCost

		details = append(details, companySummaryEmployee{
			ID:                emp.ID,
			Name:              emp.Name,
			Title:             emp.Title,
			UtilizationTarget: emp.UtilizationTarget,
			WrapRate:          structure.Costs.WrapRate,
			AnnualCost:        annualCost,
			AnnualRevenue:     annualRevenue,
			AnnualProfit:      annualRevenue - annualCost,
		})
	}

	overallMargin := 0.0
	if totalRevenue > 0 {
		overallMargin = (totalRevenue - totalCost) / totalRevenue * 100
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"summary": map[string]any{
			"totalRevenue":  totalRevenue,
			"totalCost":     totalCost,
			"totalProfit":   totalRevenue - totalCost,
			"overallMargin": overallMargin,
			"employeeCount": len(details),
		},
		"employees":    details,
		"companyRates": echoCompanyRates(companyRates),
	})
}
