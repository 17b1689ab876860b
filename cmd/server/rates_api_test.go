package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govcontools/ratedesk/internal/rates"
)

// scenarioBenefits carries explicit payroll taxes so the engine aggregates
// rather than derives. Totals $36,338 on a $150,000 salary.
func scenarioBenefits() map[string]float64 {
	return map[string]float64{
		"healthInsurance": 12000,
		"dentalInsurance": 1200,
		"visionInsurance": 600,
		"ltdInsurance":    500,
		"stdInsurance":    300,
		"lifeInsurance":   400,
		"trainingBudget":  2000,
		"match401k":       6000,
		"ptoCost":         1578,
		"ficaTax":         11475,
		"futaTax":         42,
		"sutaTax":         243,
	}
}

func TestCalculateRatesStandardScenario(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/rates/calculate", map[string]any{
		"baseSalary":       150000,
		"fringeBenefits":   scenarioBenefits(),
		"utilizationHours": 1800,
		"contractType":     "FFP",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var structure rates.RateStructure
	decodeBody(t, rec, &structure)

	assert.InDelta(t, 72.1154, structure.Rates.DirectLaborRate, 0.001)
	assert.InDelta(t, 24.2253, structure.Rates.FringeRate, 0.001)
	assert.InDelta(t, 35.0, structure.Rates.OverheadRate, 1e-9)
	assert.InDelta(t, 15.0, structure.Rates.GARate, 1e-9)
	assert.InDelta(t, 139.0816, structure.Costs.TotalBurdenedCost, 0.001)
	assert.InDelta(t, 1.9287, structure.Costs.WrapRate, 0.0001)
	assert.InDelta(t, 155.7714, structure.TargetBillRate, 0.001)
	assert.Equal(t, 1800, structure.Employee.UtilizationHours)
	assert.Nil(t, structure.Validation, "wrap rate inside the normal band carries no warnings")
}

func TestCalculateRatesRejectsBadInputs(t *testing.T) {
	_, h := newTestServer(t)

	cases := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"zero salary", map[string]any{"baseSalary": 0}, "Base salary must be positive"},
		{"negative salary", map[string]any{"baseSalary": -50000}, "Base salary must be positive"},
		{"hours too low", map[string]any{"baseSalary": 150000, "utilizationHours": 999}, "Utilization hours must be between 1000 and 2080"},
		{"hours too high", map[string]any{"baseSalary": 150000, "utilizationHours": 2081}, "Utilization hours must be between 1000 and 2080"},
		{"unknown contract type", map[string]any{"baseSalary": 150000, "contractType": "IDIQ"}, "Contract type must be FFP, T&M, or CPFF"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/rates/calculate", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			decodeBody(t, rec, &resp)
			assert.Equal(t, tc.message, resp["error"])
		})
	}
}

func TestCalculateRatesWithoutCompanyRates(t *testing.T) {
	db := newTestDB(t)
	srv := &server{db: db}
	h := srv.routes(zerolog.Nop())

	rec := doJSON(t, h, http.MethodPost, "/api/rates/calculate", map[string]any{
		"baseSalary": 150000,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Company rates not configured", resp["error"])
}

func TestBulkRatesPreservesOrderAndIsolatesFailures(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/rates/bulk", map[string]any{
		"employees": []map[string]any{
			{"name": "Alice", "baseSalary": 150000},
			{"name": "Bob", "baseSalary": -1},
			{"name": "Carol", "baseSalary": 104000},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []struct {
			Index int                  `json:"index"`
			Error string               `json:"error"`
			Costs *rates.CostBreakdown `json:"costs"`
		} `json:"results"`
		CompanyRates companyRatesEcho `json:"companyRates"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.Results, 3)
	for i, result := range resp.Results {
		assert.Equal(t, i, result.Index)
	}

	assert.Empty(t, resp.Results[0].Error)
	require.NotNil(t, resp.Results[0].Costs)

	assert.Equal(t, "Base salary must be positive", resp.Results[1].Error)
	assert.Nil(t, resp.Results[1].Costs)

	assert.Empty(t, resp.Results[2].Error)
	require.NotNil(t, resp.Results[2].Costs)
	assert.InDelta(t, 50.0, resp.Results[2].Costs.DirectLabor, 1e-9)

	assert.InDelta(t, 35.0, resp.CompanyRates.OverheadRate, 1e-9)
}

func TestBulkRatesRequiresEmployees(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/rates/bulk", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Employees array is required", resp["error"])
}

func TestCompareRatesAttachesProfitAnalysis(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/rates/compare", map[string]any{
		"baseSalary": 150000,
		"scenarios": []map[string]any{
			{"utilizationHours": 1800},
			{"utilizationHours": 1860, "billRate": 175},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Comparisons []rateComparison `json:"comparisons"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.Comparisons, 2)
	assert.Nil(t, resp.Comparisons[0].ProfitAnalysis)

	second := resp.Comparisons[1]
	require.NotNil(t, second.ProfitAnalysis)
	assert.InDelta(t, 175-second.RateStructure.Costs.TotalBurdenedCost, second.ProfitAnalysis.Profit, 1e-9)

	// The hourly direct labor rate is salary over 2080 in both scenarios;
	// utilization only changes annual projections.
	assert.InDelta(t, resp.Comparisons[0].RateStructure.Rates.DirectLaborRate,
		second.RateStructure.Rates.DirectLaborRate, 1e-9)
}

func TestEmployeeRateScenarios(t *testing.T) {
	srv, h := newTestServer(t)
	empID := seedEmployee(t, srv.db, "Jane Smith", 150000, 1800)

	contractID := seedContract(t, srv.db, "GS-35F-001AA", "T&M")
	seedAssignment(t, srv.db, empID, contractID, 100, 175)

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/rates/employee/%d", empID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RateScenarios    map[string]rates.RateStructure `json:"rateScenarios"`
		CurrentContracts []assignmentRecord             `json:"currentContracts"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.RateScenarios, 4)
	for _, key := range []string{"hours1800", "hours1860", "hours1920", "hours2080"} {
		structure, ok := resp.RateScenarios[key]
		require.True(t, ok, "missing scenario %s", key)
		assert.InDelta(t, 72.1154, structure.Rates.DirectLaborRate, 0.001)
	}
	assert.Equal(t, 1920, resp.RateScenarios["hours1920"].Employee.UtilizationHours)

	require.Len(t, resp.CurrentContracts, 1)
	assert.Equal(t, "GS-35F-001AA", resp.CurrentContracts[0].ContractNumber)
	assert.InDelta(t, 175.0, resp.CurrentContracts[0].BillRate, 1e-9)
}

func TestEmployeeRateScenariosNotFound(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/rates/employee/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContractRateAnalysis(t *testing.T) {
	srv, h := newTestServer(t)
	empID := seedEmployee(t, srv.db, "Jane Smith", 150000, 1800)
	contractID := seedContract(t, srv.db, "GS-35F-002BB", "FFP")
	seedAssignment(t, srv.db, empID, contractID, 50, 175)

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/rates/contract/%d", contractID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Summary struct {
			TotalAllocatedRevenue float64 `json:"totalAllocatedRevenue"`
			TotalAllocatedCost    float64 `json:"totalAllocatedCost"`
			TotalAllocatedProfit  float64 `json:"totalAllocatedProfit"`
			EmployeeCount         int     `json:"employeeCount"`
		} `json:"summary"`
		RateAnalysis []contractEmployeeAnalysis `json:"rateAnalysis"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.RateAnalysis, 1)
	entry := resp.RateAnalysis[0]

	// 50% of a 1800-hour target.
	assert.InDelta(t, 900.0, entry.AllocatedHours, 1e-9)
	assert.InDelta(t, 175*900, entry.Financial.AllocatedRevenue, 1e-6)
	assert.InDelta(t, entry.Rates.BurdenedCost*900, entry.Financial.AllocatedCost, 1e-6)

	assert.Equal(t, 1, resp.Summary.EmployeeCount)
	assert.InDelta(t, entry.Financial.AllocatedRevenue, resp.Summary.TotalAllocatedRevenue, 1e-9)
	assert.InDelta(t, resp.Summary.TotalAllocatedRevenue-resp.Summary.TotalAllocatedCost,
		resp.Summary.TotalAllocatedProfit, 1e-9)
}
