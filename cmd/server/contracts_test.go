package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetContract(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/contracts", map[string]any{
		"contractNumber": "GS-35F-123ABC",
		"contractName":   "IT Modernization",
		"customer":       "Department of Commerce",
		"startDate":      "2026-01-01",
		"endDate":        "2026-12-31",
		"contractType":   "FFP",
		"totalValue":     750000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created contractRecord
	decodeBody(t, rec, &created)
	assert.Equal(t, "GS-35F-123ABC", created.ContractNumber)
	assert.Equal(t, "FFP", created.ContractType)
	require.NotNil(t, created.TotalValue)
	assert.InDelta(t, 750000.0, *created.TotalValue, 1e-9)

	getRec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/contracts/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched contractRecord
	decodeBody(t, getRec, &fetched)
	assert.Equal(t, created, fetched)
}

func TestCreateContractValidation(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/contracts", map[string]any{
		"contractNumber": "GS-35F-123ABC",
		"contractName":   "IT Modernization",
		"customer":       "Department of Commerce",
		"startDate":      "2026-01-01",
		"endDate":        "2026-12-31",
		"contractType":   "IDIQ",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string][]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["errors"], "Contract type must be FFP, T&M, or CPFF")
}

func TestDeleteContractDeactivates(t *testing.T) {
	srv, h := newTestServer(t)
	contractID := seedContract(t, srv.db, "GS-35F-004DD", "CPFF")

	rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/contracts/%d", contractID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	listRec := doJSON(t, h, http.MethodGet, "/api/contracts", nil)
	require.Equal(t, http.StatusOK, listRec.Code)

	var contracts []contractRecord
	decodeBody(t, listRec, &contracts)
	assert.Empty(t, contracts)
}

func TestAssignEmployeeUpserts(t *testing.T) {
	srv, h := newTestServer(t)
	empID := seedEmployee(t, srv.db, "Jane Smith", 150000, 1800)
	contractID := seedContract(t, srv.db, "GS-35F-005EE", "T&M")

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/contracts/%d/assign-employee", contractID), map[string]any{
		"employeeId":           empID,
		"allocationPercentage": 50,
		"billRate":             150,
		"startDate":            "2026-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Re-assigning the same pair updates the allocation instead of adding a
	// second row.
	again := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/contracts/%d/assign-employee", contractID), map[string]any{
		"employeeId":           empID,
		"allocationPercentage": 75,
		"billRate":             160,
		"startDate":            "2026-02-01",
	})
	require.Equal(t, http.StatusOK, again.Code, again.Body.String())

	assignments, err := srv.listEmployeeAssignments(empID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.InDelta(t, 75.0, assignments[0].AllocationPercentage, 1e-9)
	assert.InDelta(t, 160.0, assignments[0].BillRate, 1e-9)
}

func TestAssignEmployeeValidation(t *testing.T) {
	srv, h := newTestServer(t)
	contractID := seedContract(t, srv.db, "GS-35F-006FF", "FFP")

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/contracts/%d/assign-employee", contractID), map[string]any{
		"allocationPercentage": 150,
		"billRate":             0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string][]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["errors"], "Employee id is required")
	assert.Contains(t, resp["errors"], "Allocation percentage must be between 0 and 100")
	assert.Contains(t, resp["errors"], "Bill rate must be positive")
}

func TestAssignEmployeeUnknownEmployee(t *testing.T) {
	srv, h := newTestServer(t)
	contractID := seedContract(t, srv.db, "GS-35F-007GG", "FFP")

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/contracts/%d/assign-employee", contractID), map[string]any{
		"employeeId":           999,
		"allocationPercentage": 50,
		"billRate":             150,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Employee not found", resp["error"])
}
