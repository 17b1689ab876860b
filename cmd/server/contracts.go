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

var errContractNotFound = errors.New("contract not found")

type contractRecord struct {
	ID             int64    `json:"id"`
	ContractNumber string   `json:"contractNumber"`
	ContractName   string   `json:"contractName"`
	Customer       string   `json:"customer"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	ContractType   string   `json:"contractType"`
	TotalValue     *float64 `json:"totalValue,omitempty"`
	Active         bool     `json:"active"`
}

type contractInput struct {
	ContractNumber string   `json:"contractNumber"`
	ContractName   string   `json:"contractName"`
	Customer       string   `json:"customer"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	ContractType   string   `json:"contractType"`
	TotalValue     *float64 `json:"totalValue"`
}

func (in contractInput) validate() []string {
	var errs []string

	if in.ContractNumber == "" {
		errs = append(errs, "Contract number is required and must be a string")
	}
	if in.ContractName == "" {
		errs = append(errs, "Contract name is required and must be a string")
	}
	if in.Customer == "" {
		errs = append(errs, "Customer is required and must be a string")
	}
	if in.StartDate == "" {
		errs = append(errs, "Start date is required")
	}
	if in.EndDate == "" {
		errs = append(errs, "End date is required")
	}
	switch rates.ContractType(in.ContractType) {
	case rates.FixedPrice, rates.TimeAndMaterials, rates.CostPlusFixedFee:
	default:
		errs = append(errs, "Contract type must be FFP, T&M, or CPFF")
	}

	return errs
}

// assignmentRecord joins an employee-contract allocation with contract
// display fields.
type assignmentRecord struct {
	ContractID           int64   `json:"contractId"`
	ContractNumber       string  `json:"contractNumber"`
	ContractName         string  `json:"contractName"`
	Customer             string  `json:"customer"`
	ContractType         string  `json:"contractType"`
	BillRate             float64 `json:"billRate"`
	AllocationPercentage float64 `json:"allocationPercentage"`
}

func (s *server) listEmployeeAssignments(employeeID int64) ([]assignmentRecord, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.contract_number, c.contract_name, c.customer, c.contract_type,
			ec.bill_rate, ec.allocation_percentage
		FROM employee_contracts ec
		JOIN contracts c ON c.id = ec.contract_id
		WHERE ec.employee_id = ? AND c.active
		ORDER BY c.id
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query employee assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]assignmentRecord, 0)
	for rows.Next() {
		var a assignmentRecord
		if err := rows.Scan(&a.ContractID, &a.ContractNumber, &a.ContractName, &a.Customer,
			&a.ContractType, &a.BillRate, &a.AllocationPercentage); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return assignments, nil
}

func (s *server) getContract(id int64) (contractRecord, error) {
	var c contractRecord
	var totalValue sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT id, contract_number, contract_name, customer, start_date, end_date, contract_type, total_value, active
		FROM contracts
		WHERE id = ?
	`, id).Scan(&c.ID, &c.ContractNumber, &c.ContractName, &c.Customer,
		&c.StartDate, &c.EndDate, &c.ContractType, &totalValue, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return contractRecord{}, errContractNotFound
	}
	if err != nil {
		return contractRecord{}, fmt.Errorf("query contract: %w", err)
	}
	if totalValue.Valid {
		c.TotalValue = &totalValue.Float64
	}
	return c, nil
}

func (s *server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, contract_number, contract_name, customer, start_date, end_date, contract_type, total_value, active
		FROM contracts
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list contracts")
		writeError(w, r, http.StatusInternalServerError, "failed to load contracts")
		return
	}
	defer rows.Close()

	contracts := make([]contractRecord, 0)
	for rows.Next() {
		var c contractRecord
		var totalValue sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.ContractNumber, &c.ContractName, &c.Customer,
			&c.StartDate, &c.EndDate, &c.ContractType, &totalValue, &c.Active); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to scan contract")
			writeError(w, r, http.StatusInternalServerError, "failed to load contracts")
			return
		}
		if totalValue.Valid {
			c.TotalValue = &totalValue.Float64
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to iterate contracts")
		writeError(w, r, http.StatusInternalServerError, "failed to load contracts")
		return
	}

	writeJSON(w, r, http.StatusOK, contracts)
}

func (s *server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid contract id")
		return
	}

	contract, err := s.getContract(id)
	if errors.Is(err, errContractNotFound) {
		writeError(w, r, http.StatusNotFound, "Contract not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load contract")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract")
		return
	}

	writeJSON(w, r, http.StatusOK, contract)
}

func (s *server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var input contractInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := input.validate(); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	result, err := s.db.Exec(`
		INSERT INTO contracts (contract_number, contract_name, customer, start_date, end_date, contract_type, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, input.ContractNumber, input.ContractName, input.Customer,
		input.StartDate, input.EndDate, input.ContractType, input.TotalValue)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to create contract")
		writeError(w, r, http.StatusBadRequest, "failed to create contract")
		return
	}

	id, _ := result.LastInsertId()
	contract, err := s.getContract(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to reload contract")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract")
		return
	}

	writeJSON(w, r, http.StatusCreated, contract)
}

func (s *server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid contract id")
		return
	}

	var input contractInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := input.validate(); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	result, err := s.db.Exec(`
		UPDATE contracts
		SET contract_number = ?, contract_name = ?, customer = ?, start_date = ?,
			end_date = ?, contract_type = ?, total_value = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, input.ContractNumber, input.ContractName, input.Customer, input.StartDate,
		input.EndDate, input.ContractType, input.TotalValue, id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update contract")
		writeError(w, r, http.StatusInternalServerError, "failed to update contract")
		return
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		writeError(w, r, http.StatusNotFound, "Contract not found")
		return
	}

	contract, err := s.getContract(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to reload contract")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract")
		return
	}

	writeJSON(w, r, http.StatusOK, contract)
}

func (s *server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid contract id")
		return
	}

	result, err := s.db.Exec(`
		UPDATE contracts SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to deactivate contract")
		writeError(w, r, http.StatusInternalServerError, "failed to deactivate contract")
		return
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		writeError(w, r, http.StatusNotFound, "Contract not found")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Contract deactivated successfully"})
}

type assignEmployeeInput struct {
	EmployeeID           int64   `json:"employeeId"`
	AllocationPercentage float64 `json:"allocationPercentage"`
	BillRate             float64 `json:"billRate"`
	StartDate            string  `json:"startDate"`
	EndDate              *string `json:"endDate"`
}

func (s *server) handleAssignEmployee(w http.ResponseWriter, r *http.Request) {
	contractID, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid contract id")
		return
	}

	var input assignEmployeeInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []string
	if input.EmployeeID <= 0 {
		errs = append(errs, "Employee id is required")
	}
	if input.AllocationPercentage <= 0 || input.AllocationPercentage > 100 {
		errs = append(errs, "Allocation percentage must be between 0 and 100")
	}
	if input.BillRate <= 0 {
		errs = append(errs, "Bill rate must be positive")
	}
	if input.StartDate == "" {
		input.StartDate = time.Now().Format("2006-01-02")
	}
	if len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	if _, err := s.getContract(contractID); errors.Is(err, errContractNotFound) {
		writeError(w, r, http.StatusNotFound, "Contract not found")
		return
	}
	if _, err := s.getEmployee(input.EmployeeID); errors.Is(err, errEmployeeNotFound) {
		writeError(w, r, http.StatusNotFound, "Employee not found")
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO employee_contracts (employee_id, contract_id, allocation_percentage, bill_rate, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, contract_id) DO UPDATE SET
			allocation_percentage = excluded.allocation_percentage,
			bill_rate = excluded.bill_rate,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, input.EmployeeID, contractID, input.AllocationPercentage, input.BillRate, input.StartDate, input.EndDate)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to assign employee")
		writeError(w, r, http.StatusInternalServerError, "failed to assign employee")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Employee assigned successfully"})
}
