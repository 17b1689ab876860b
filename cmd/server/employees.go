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

var errEmployeeNotFound = errors.New("employee not found")

type fringeBenefitsRecord struct {
	HealthInsurance   float64  `json:"healthInsurance"`
	DentalInsurance   float64  `json:"dentalInsurance"`
	VisionInsurance   float64  `json:"visionInsurance"`
	LTDInsurance      float64  `json:"ltdInsurance"`
	STDInsurance      float64  `json:"stdInsurance"`
	LifeInsurance     float64  `json:"lifeInsurance"`
	TrainingBudget    float64  `json:"trainingBudget"`
	Match401k         float64  `json:"match401k"`
	PTOCost           float64  `json:"ptoCost"`
	CellAllowance     float64  `json:"cellAllowance"`
	InternetAllowance float64  `json:"internetAllowance"`
	FICATax           *float64 `json:"ficaTax,omitempty"`
	FUTATax           *float64 `json:"futaTax,omitempty"`
	SUTATax           *float64 `json:"sutaTax,omitempty"`
}

// toSet converts the stored record into the engine's benefit set. Absent
// payroll taxes stay absent so the engine derives them.
func (f fringeBenefitsRecord) toSet() rates.FringeBenefitSet {
	set := rates.FringeBenefitSet{
		rates.HealthInsurance:   f.HealthInsurance,
		rates.DentalInsurance:   f.DentalInsurance,
		rates.VisionInsurance:   f.VisionInsurance,
		rates.LTDInsurance:      f.LTDInsurance,
		rates.STDInsurance:      f.STDInsurance,
		rates.LifeInsurance:     f.LifeInsurance,
		rates.TrainingBudget:    f.TrainingBudget,
		rates.Match401k:         f.Match401k,
		rates.PTOCost:           f.PTOCost,
		rates.CellAllowance:     f.CellAllowance,
		rates.InternetAllowance: f.InternetAllowance,
	}
	if f.FICATax != nil {
		set[rates.FICATax] = *f.FICATax
	}
	if f.FUTATax != nil {
		set[rates.FUTATax] = *f.FUTATax
	}
	if f.SUTATax != nil {
		set[rates.SUTATax] = *f.SUTATax
	}
	return set
}

func (f fringeBenefitsRecord) validate() []string {
	fields := map[string]float64{
		"healthInsurance":   f.HealthInsurance,
		"dentalInsurance":   f.DentalInsurance,
		"visionInsurance":   f.VisionInsurance,
		"ltdInsurance":      f.LTDInsurance,
		"stdInsurance":      f.STDInsurance,
		"lifeInsurance":     f.LifeInsurance,
		"trainingBudget":    f.TrainingBudget,
		"match401k":         f.Match401k,
		"ptoCost":           f.PTOCost,
		"cellAllowance":     f.CellAllowance,
		"internetAllowance": f.InternetAllowance,
	}

	var errs []string
	for name, value := range fields {
		if value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be a non-negative number", name))
		}
	}
	return errs
}

type employeeRecord struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	Title             string               `json:"title"`
	BaseSalary        float64              `json:"baseSalary"`
	HireDate          string               `json:"hireDate"`
	UtilizationTarget int                  `json:"utilizationTarget"`
	Active            bool                 `json:"active"`
	FringeBenefits    fringeBenefitsRecord `json:"fringeBenefits"`
}

type employeeInput struct {
	Name              string                `json:"name"`
	Title             string                `json:"title"`
	BaseSalary        float64               `json:"baseSalary"`
	HireDate          string                `json:"hireDate"`
	UtilizationTarget int                   `json:"utilizationTarget"`
	FringeBenefits    *fringeBenefitsRecord `json:"fringeBenefits"`
}

func (in *employeeInput) validate() []string {
	var errs []string

	if in.Name == "" {
		errs = append(errs, "Name is required and must be a non-empty string")
	}
	if in.Title == "" {
		errs = append(errs, "Title is required and must be a non-empty string")
	}
	if in.BaseSalary <= 0 {
		errs = append(errs, "Base salary is required and must be a positive number")
	}
	if in.HireDate == "" {
		errs = append(errs, "Hire date is required")
	} else if _, err := time.Parse("2006-01-02", in.HireDate); err != nil {
		errs = append(errs, "Hire date must be a valid date")
	}

	if in.UtilizationTarget == 0 {
		in.UtilizationTarget = 1800
	}
	if in.UtilizationTarget != 1800 && in.UtilizationTarget != 1860 {
		errs = append(errs, "Utilization target must be either 1800 or 1860")
	}

	if in.FringeBenefits != nil {
		errs = append(errs, in.FringeBenefits.validate()...)
	}

	return errs
}

const employeeColumns = `
	e.id, e.name, e.title, e.base_salary, e.hire_date, e.utilization_target, e.active,
	COALESCE(f.health_insurance, 0), COALESCE(f.dental_insurance, 0), COALESCE(f.vision_insurance, 0),
	COALESCE(f.ltd_insurance, 0), COALESCE(f.std_insurance, 0), COALESCE(f.life_insurance, 0),
	COALESCE(f.training_budget, 0), COALESCE(f.match_401k, 0), COALESCE(f.pto_cost, 0),
	COALESCE(f.cell_allowance, 0), COALESCE(f.internet_allowance, 0),
	f.fica_tax, f.futa_tax, f.suta_tax`

func scanEmployee(row interface{ Scan(...any) error }) (employeeRecord, error) {
	var emp employeeRecord
	var fica, futa, suta sql.NullFloat64

	err := row.Scan(
		&emp.ID, &emp.Name, &emp.Title, &emp.BaseSalary, &emp.HireDate, &emp.UtilizationTarget, &emp.Active,
		&emp.FringeBenefits.HealthInsurance, &emp.FringeBenefits.DentalInsurance, &emp.FringeBenefits.VisionInsurance,
		&emp.FringeBenefits.LTDInsurance, &emp.FringeBenefits.STDInsurance, &emp.FringeBenefits.LifeInsurance,
		&emp.FringeBenefits.TrainingBudget, &emp.FringeBenefits.Match401k, &emp.FringeBenefits.PTOCost,
		&emp.FringeBenefits.CellAllowance, &emp.FringeBenefits.InternetAllowance,
		&fica, &futa, &suta,
	)
	if err != nil {
		return employeeRecord{}, err
	}

	if fica.Valid {
		emp.FringeBenefits.FICATax = &fica.Float64
	}
	if futa.Valid {
		emp.FringeBenefits.FUTATax = &futa.Float64
	}
	if suta.Valid {
		emp.FringeBenefits.SUTATax = &suta.Float64
	}

	return emp, nil
}

func (s *server) listEmployees() ([]employeeRecord, error) {
	rows, err := s.db.Query(`
		SELECT ` + employeeColumns + `
		FROM employees e
		LEFT JOIN fringe_benefits f ON f.employee_id = e.id
		WHERE e.active
		ORDER BY e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	employees := make([]employeeRecord, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}

	return employees, nil
}

func (s *server) getEmployee(id int64) (employeeRecord, error) {
	row := s.db.QueryRow(`
		SELECT `+employeeColumns+`
		FROM employees e
		LEFT JOIN fringe_benefits f ON f.employee_id = e.id
		WHERE e.id = ?
	`, id)

	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return employeeRecord{}, errEmployeeNotFound
	}
	if err != nil {
		return employeeRecord{}, fmt.Errorf("query employee: %w", err)
	}
	return emp, nil
}

func (s *server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.listEmployees()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list employees")
		writeError(w, r, http.StatusInternalServerError, "failed to load employees")
		return
	}
	writeJSON(w, r, http.StatusOK, employees)
}

func (s *server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid employee id")
		return
	}

	emp, err := s.getEmployee(id)
	if errors.Is(err, errEmployeeNotFound) {
		writeError(w, r, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load employee")
		writeError(w, r, http.StatusInternalServerError, "failed to load employee")
		return
	}

	writeJSON(w, r, http.StatusOK, emp)
}

func (s *server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var input employeeInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := input.validate(); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to begin transaction")
		writeError(w, r, http.StatusInternalServerError, "failed to create employee")
		return
	}

	result, err := tx.Exec(`
		INSERT INTO employees (name, title, base_salary, hire_date, utilization_target)
		VALUES (?, ?, ?, ?, ?)
	`, input.Name, input.Title, input.BaseSalary, input.HireDate, input.UtilizationTarget)
	if err == nil {
		var id int64
		if id, err = result.LastInsertId(); err == nil {
			err = insertFringeBenefits(tx, id, input.FringeBenefits)
		}
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		_ = tx.Rollback()
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to create employee")
		writeError(w, r, http.StatusBadRequest, "failed to create employee")
		return
	}

	id, _ := result.LastInsertId()
	emp, err := s.getEmployee(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to reload employee")
		writeError(w, r, http.StatusInternalServerError, "failed to load employee")
		return
	}

	writeJSON(w, r, http.StatusCreated, emp)
}

func insertFringeBenefits(tx *sql.Tx, employeeID int64, f *fringeBenefitsRecord) error {
	// Every employee gets a fringe record; a nil input means all zeros and
	// payroll taxes derived at calculation time.
	if f == nil {
		f = &fringeBenefitsRecord{}
	}

	_, err := tx.Exec(`
		INSERT INTO fringe_benefits (
			employee_id, health_insurance, dental_insurance, vision_insurance,
			ltd_insurance, std_insurance, life_insurance, training_budget,
			match_401k, pto_cost, cell_allowance, internet_allowance,
			fica_tax, futa_tax, suta_tax
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, employeeID,
		f.HealthInsurance, f.DentalInsurance, f.VisionInsurance,
		f.LTDInsurance, f.STDInsurance, f.LifeInsurance, f.TrainingBudget,
		f.Match401k, f.PTOCost, f.CellAllowance, f.InternetAllowance,
		f.FICATax, f.FUTATax, f.SUTATax)
	return err
}

func (s *server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid employee id")
		return
	}

	var input employeeInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := input.validate(); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	result, err := s.db.Exec(`
		UPDATE employees
		SET name = ?, title = ?, base_salary = ?, hire_date = ?, utilization_target = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, input.Name, input.Title, input.BaseSalary, input.HireDate, input.UtilizationTarget, id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update employee")
		writeError(w, r, http.StatusInternalServerError, "failed to update employee")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update employee")
		writeError(w, r, http.StatusInternalServerError, "failed to update employee")
		return
	}
	if affected == 0 {
		writeError(w, r, http.StatusNotFound, "Employee not found")
		return
	}

	if input.FringeBenefits != nil {
		f := input.FringeBenefits
		_, err := s.db.Exec(`
			UPDATE fringe_benefits
			SET health_insurance = ?, dental_insurance = ?, vision_insurance = ?,
				ltd_insurance = ?, std_insurance = ?, life_insurance = ?,
				training_budget = ?, match_401k = ?, pto_cost = ?,
				cell_allowance = ?, internet_allowance = ?,
				fica_tax = ?, futa_tax = ?, suta_tax = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE employee_id = ?
		`, f.HealthInsurance, f.DentalInsurance, f.VisionInsurance,
			f.LTDInsurance, f.STDInsurance, f.LifeInsurance,
			f.TrainingBudget, f.Match401k, f.PTOCost,
			f.CellAllowance, f.InternetAllowance,
			f.FICATax, f.FUTATax, f.SUTATax, id)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to update fringe benefits")
			writeError(w, r, http.StatusInternalServerError, "failed to update fringe benefits")
			return
		}
	}

	emp, err := s.getEmployee(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to reload employee")
		writeError(w, r, http.StatusInternalServerError, "failed to load employee")
		return
	}

	writeJSON(w, r, http.StatusOK, emp)
}

func (s *server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid employee id")
		return
	}

	result, err := s.db.Exec(`
		UPDATE employees SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to deactivate employee")
		writeError(w, r, http.StatusInternalServerError, "failed to deactivate employee")
		return
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		writeError(w, r, http.StatusNotFound, "Employee not found")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Employee deactivated successfully"})
}

// handleEmployeeCosts returns burdened rate structures for both standard
// utilization scenarios.
func (s *server) handleEmployeeCosts(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid employee id")
		return
	}

	emp, err := s.getEmployee(id)
	if errors.Is(err, errEmployeeNotFound) {
		writeError(w, r, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load employee")
		writeError(w, r, http.StatusInternalServerError, "failed to load employee")
		return
	}

	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	calculations := make(map[string]rates.RateStructure, 2)
	for _, hours := range []int{1800, 1860} {
		structure, err := rates.BuildRateStructure(
			rates.Employee{Name: emp.Name, Title: emp.Title, BaseSalary: emp.BaseSalary},
			emp.FringeBenefits.toSet(),
			companyRates,
			hours,
			"",
		)
		if err != nil {
			writeCalculationError(w, r, err)
			return
		}
		calculations[fmt.Sprintf("hours%d", hours)] = structure
	}

	writeJSON(w, r, http.StatusOK, calculations)
}
