package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/govcontools/ratedesk/internal/rates"
)

const defaultUtilizationHours = 1800

type rateCalculationInput struct {
	Name             string             `json:"name"`
	Title            string             `json:"title"`
	BaseSalary       float64            `json:"baseSalary"`
	FringeBenefits   map[string]float64 `json:"fringeBenefits"`
	UtilizationHours int                `json:"utilizationHours"`
	ContractType     string             `json:"contractType"`
}

// validate applies the boundary rules and fills defaults. It returns the
// parsed contract type and an error message suitable for the response body.
func (in *rateCalculationInput) validate() (rates.ContractType, string) {
	if in.BaseSalary <= 0 {
		return "", "Base salary must be positive"
	}
	if in.UtilizationHours == 0 {
		in.UtilizationHours = defaultUtilizationHours
	}
	if in.UtilizationHours < 1000 || in.UtilizationHours > 2080 {
		return "", "Utilization hours must be between 1000 and 2080"
	}
	contractType, err := rates.ParseContractType(in.ContractType)
	if err != nil {
		return "", "Contract type must be FFP, T&M, or CPFF"
	}
	return contractType, ""
}

func benefitSet(raw map[string]float64) rates.FringeBenefitSet {
	set := make(rates.FringeBenefitSet, len(raw))
	for category, amount := range raw {
		set[rates.BenefitCategory(category)] = amount
	}
	return set
}

func (s *server) handleCalculateRates(w http.ResponseWriter, r *http.Request) {
	var input rateCalculationInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	contractType, msg := input.validate()
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	structure, err := rates.BuildRateStructure(
		rates.Employee{Name: input.Name, Title: input.Title, BaseSalary: input.BaseSalary},
		benefitSet(input.FringeBenefits),
		companyRates,
		input.UtilizationHours,
		contractType,
	)
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, structure)
}

type bulkRateResult struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
	*rates.RateStructure
}

func (s *server) handleBulkRates(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Employees []rateCalculationInput `json:"employees"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(input.Employees) == 0 {
		writeError(w, r, http.StatusBadRequest, "Employees array is required")
		return
	}

	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	// Each item is evaluated independently; one bad entry never aborts the
	// batch.
	results := make([]bulkRateResult, 0, len(input.Employees))
	for i := range input.Employees {
		item := &input.Employees[i]

		contractType, msg := item.validate()
		if msg != "" {
			results = append(results, bulkRateResult{Index: i, Error: msg})
			continue
		}

		structure, err := rates.BuildRateStructure(
			rates.Employee{Name: item.Name, Title: item.Title, BaseSalary: item.BaseSalary},
			benefitSet(item.FringeBenefits),
			companyRates,
			item.UtilizationHours,
			contractType,
		)
		if err != nil {
			results = append(results, bulkRateResult{Index: i, Error: err.Error()})
			continue
		}

		results = append(results, bulkRateResult{Index: i, RateStructure: &structure})
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"results":      results,
		"companyRates": echoCompanyRates(companyRates),
	})
}

type rateScenario struct {
	UtilizationHours int      `json:"utilizationHours"`
	ContractType     string   `json:"contractType,omitempty"`
	BillRate         *float64 `json:"billRate,omitempty"`
}

type rateComparison struct {
	Scenario       rateScenario          `json:"scenario"`
	RateStructure  rates.RateStructure   `json:"rateStructure"`
	ProfitAnalysis *rates.ProfitAnalysis `json:"profitAnalysis,omitempty"`
}

func (s *server) handleCompareRates(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BaseSalary     float64            `json:"baseSalary"`
		FringeBenefits map[string]float64 `json:"fringeBenefits"`
		Scenarios      []rateScenario     `json:"scenarios"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if input.BaseSalary <= 0 {
		writeError(w, r, http.StatusBadRequest, "Base salary must be positive")
		return
	}
	if len(input.Scenarios) == 0 {
		writeError(w, r, http.StatusBadRequest, "Scenarios array is required")
		return
	}

	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	benefits := benefitSet(input.FringeBenefits)
	comparisons := make([]rateComparison, 0, len(input.Scenarios))

	for _, scenario := range input.Scenarios {
		item := rateCalculationInput{
			BaseSalary:       input.BaseSalary,
			UtilizationHours: scenario.UtilizationHours,
			ContractType:     scenario.ContractType,
		}
		contractType, msg := item.validate()
		if msg != "" {
			writeError(w, r, http.StatusBadRequest, msg)
			return
		}

		structure, err := rates.BuildRateStructure(
			rates.Employee{BaseSalary: input.BaseSalary},
			benefits,
			companyRates,
			item.UtilizationHours,
			contractType,
		)
		if err != nil {
			writeCalculationError(w, r, err)
			return
		}

		comparison := rateComparison{Scenario: scenario, RateStructure: structure}
		if scenario.BillRate != nil {
			analysis, err := rates.AnalyzeProfit(*scenario.BillRate, structure.Costs.TotalBurdenedCost)
			if err != nil {
				writeCalculationError(w, r, err)
				return
			}
			comparison.ProfitAnalysis = &analysis
		}

		comparisons = append(comparisons, comparison)
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"baseSalary":   input.BaseSalary,
		"comparisons":  comparisons,
		"companyRates": echoCompanyRates(companyRates),
	})
}

// handleEmployeeRateScenarios returns rate structures for a stored employee
// across the standard utilization scenarios, plus current contract
// assignments.
func (s *server) handleEmployeeRateScenarios(w http.ResponseWriter, r *http.Request) {
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

	scenarios := make(map[string]rates.RateStructure, 4)
	for _, hours := range []int{1800, 1860, 1920, 2080} {
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
		scenarios[fmt.Sprintf("hours%d", hours)] = structure
	}

	assignments, err := s.listEmployeeAssignments(emp.ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load assignments")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract assignments")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"employee": map[string]any{
			"id":                emp.ID,
			"name":              emp.Name,
			"title":             emp.Title,
			"baseSalary":        emp.BaseSalary,
			"utilizationTarget": emp.UtilizationTarget,
		},
		"rateScenarios":    scenarios,
		"currentContracts": assignments,
		"companyRates":     echoCompanyRates(companyRates),
	})
}

type contractEmployeeAnalysis struct {
	Employee struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"employee"`
	Allocation     float64 `json:"allocation"`
	AllocatedHours float64 `json:"allocatedHours"`
	Rates          struct {
		DirectLaborRate float64 `json:"directLaborRate"`
		BurdenedCost    float64 `json:"burdenedCost"`
		BillRate        float64 `json:"billRate"`
		WrapRate        float64 `json:"wrapRate"`
	} `json:"rates"`
	Financial struct {
		AllocatedRevenue float64 `json:"allocatedRevenue"`
		AllocatedCost    float64 `json:"allocatedCost"`
		AllocatedProfit  float64 `json:"allocatedProfit"`
		Profit           float64 `json:"profit"`
		ProfitMargin     float64 `json:"profitMargin"`
		Markup           float64 `json:"markup"`
	} `json:"financial"`
	Validation *rates.Validation `json:"validation,omitempty"`
}

// handleContractRateAnalysis evaluates every employee assigned to a contract
// against the contract's pricing type and negotiated bill rates.
func (s *server) handleContractRateAnalysis(w http.ResponseWriter, r *http.Request) {
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

	companyRates, err := s.activeCompanyRates(currentFiscalYear())
	if err != nil {
		writeCalculationError(w, r, err)
		return
	}

	rows, err := s.db.Query(`
		SELECT employee_id, bill_rate, allocation_percentage
		FROM employee_contracts
		WHERE contract_id = ?
		ORDER BY employee_id
	`, id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load contract assignments")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract assignments")
		return
	}
	defer rows.Close()

	type allocation struct {
		employeeID int64
		billRate   float64
		percentage float64
	}
	var allocations []allocation
	for rows.Next() {
		var a allocation
		if err := rows.Scan(&a.employeeID, &a.billRate, &a.percentage); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to scan assignment")
			writeError(w, r, http.StatusInternalServerError, "failed to load contract assignments")
			return
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to iterate assignments")
		writeError(w, r, http.StatusInternalServerError, "failed to load contract assignments")
		return
	}

	totalRevenue := 0.0
	totalCost := 0.0
	analysis := make([]contractEmployeeAnalysis, 0, len(allocations))

	for _, alloc := range allocations {
		emp, err := s.getEmployee(alloc.employeeID)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Int64("employee_id", alloc.employeeID).Msg("failed to load assigned employee")
			writeError(w, r, http.StatusInternalServerError, "failed to load assigned employee")
			return
		}

		structure, err := rates.BuildRateStructure(
			rates.Employee{Name: emp.Name, Title: emp.Title, BaseSalary: emp.BaseSalary},
			emp.FringeBenefits.toSet(),
			companyRates,
			emp.UtilizationTarget,
			rates.ContractType(contract.ContractType),
		)
		if err != nil {
			writeCalculationError(w, r, err)
			return
		}

		allocatedHours := float64(emp.UtilizationTarget) * alloc.percentage / 100
		allocatedRevenue := alloc.billRate * allocatedHours
		allocatedCost := structure.Costs.TotalBurdenedCost * allocatedHours
		totalRevenue += allocatedRevenue
		totalCost += allocatedCost

		profitAnalysis, err := rates.AnalyzeProfit(alloc.billRate, structure.Costs.TotalBurdenedCost)
		if err != nil {
			writeCalculationError(w, r, err)
			return
		}

		var entry contractEmployeeAnalysis
		entry.Employee.ID = emp.ID
		entry.Employee.Name = emp.Name
		entry.Employee.Title = emp.Title
		entry.Allocation = alloc.percentage
		entry.AllocatedHours = allocatedHours
		entry.Rates.DirectLaborRate = structure.Costs.DirectLabor
		entry.Rates.BurdenedCost = structure.Costs.TotalBurdenedCost
		entry.Rates.BillRate = alloc.billRate
		entry.Rates.WrapRate = structure.Costs.WrapRate
		entry.Financial.AllocatedRevenue = allocatedRevenue
		entry.Financial.AllocatedCost = allocatedCost
		entry.Financial.AllocatedProfit = allocatedRevenue - allocatedCost
		entry.Financial.Profit = profitAnalysis.Profit
		entry.Financial.ProfitMargin = profitAnalysis.ProfitMargin
		entry.Financial.Markup = profitAnalysis.Markup
		entry.Validation = structure.Validation

		analysis = append(analysis, entry)
	}

	overallMargin := 0.0
	if totalRevenue > 0 {
		overallMargin = (totalRevenue - totalCost) / totalRevenue * 100
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"contract": contract,
		"summary": map[string]any{
			"totalAllocatedRevenue": totalRevenue,
			"totalAllocatedCost":    totalCost,
			"totalAllocatedProfit":  totalRevenue - totalCost,
			"overallMargin":         overallMargin,
			"employeeCount":         len(analysis),
		},
		"rateAnalysis": analysis,
		"companyRates": echoCompanyRates(companyRates),
	})
}
