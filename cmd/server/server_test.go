package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// testSchema mirrors the goose migration so handler tests run against an
// in-memory database.
const testSchema = `
	CREATE TABLE employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		base_salary REAL NOT NULL,
		hire_date DATE NOT NULL,
		utilization_target INTEGER NOT NULL DEFAULT 1800 CHECK (utilization_target IN (1800, 1860)),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE fringe_benefits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL UNIQUE REFERENCES employees (id) ON DELETE CASCADE,
		health_insurance REAL NOT NULL DEFAULT 0,
		dental_insurance REAL NOT NULL DEFAULT 0,
		vision_insurance REAL NOT NULL DEFAULT 0,
		ltd_insurance REAL NOT NULL DEFAULT 0,
		std_insurance REAL NOT NULL DEFAULT 0,
		life_insurance REAL NOT NULL DEFAULT 0,
		training_budget REAL NOT NULL DEFAULT 0,
		match_401k REAL NOT NULL DEFAULT 0,
		pto_cost REAL NOT NULL DEFAULT 0,
		cell_allowance REAL NOT NULL DEFAULT 0,
		internet_allowance REAL NOT NULL DEFAULT 0,
		fica_tax REAL,
		futa_tax REAL,
		suta_tax REAL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE company_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fiscal_year INTEGER NOT NULL,
		overhead_rate REAL NOT NULL,
		ga_rate REAL NOT NULL,
		target_profit_margin REAL NOT NULL,
		compensation_cap REAL NOT NULL DEFAULT 207000,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX company_rates_active_fiscal_year
		ON company_rates (fiscal_year)
		WHERE active;

	CREATE TABLE contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_number TEXT NOT NULL UNIQUE,
		contract_name TEXT NOT NULL,
		customer TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		contract_type TEXT NOT NULL CHECK (contract_type IN ('FFP', 'T&M', 'CPFF')),
		total_value REAL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE employee_contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees (id) ON DELETE CASCADE,
		contract_id INTEGER NOT NULL REFERENCES contracts (id) ON DELETE CASCADE,
		allocation_percentage REAL NOT NULL,
		bill_rate REAL NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE,
		UNIQUE (employee_id, contract_id)
	);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "open sqlite db")

	_, err = db.Exec(testSchema)
	require.NoError(t, err, "create schema")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func seedCompanyRates(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO company_rates (fiscal_year, overhead_rate, ga_rate, target_profit_margin, compensation_cap, active)
		VALUES (?, 0.35, 0.15, 0.10, 207000, TRUE)
	`, currentFiscalYear())
	require.NoError(t, err, "seed company rates")
}

// newTestServer builds a server with schema and active company rates.
func newTestServer(t *testing.T) (*server, http.Handler) {
	t.Helper()

	db := newTestDB(t)
	seedCompanyRates(t, db)
	srv := &server{db: db}
	return srv, srv.routes(zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body), "encode request body")
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "decode response body: %s", rec.Body.String())
}

func seedEmployee(t *testing.T, db *sql.DB, name string, salary float64, utilization int) int64 {
	t.Helper()

	result, err := db.Exec(`
		INSERT INTO employees (name, title, base_salary, hire_date, utilization_target)
		VALUES (?, 'Engineer', ?, '2023-01-15', ?)
	`, name, salary, utilization)
	require.NoError(t, err, "seed employee")

	id, err := result.LastInsertId()
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO fringe_benefits (employee_id, health_insurance, match_401k)
		VALUES (?, 12000, 6000)
	`, id)
	require.NoError(t, err, "seed fringe benefits")

	return id
}

func seedContract(t *testing.T, db *sql.DB, number, contractType string) int64 {
	t.Helper()

	result, err := db.Exec(`
		INSERT INTO contracts (contract_number, contract_name, customer, start_date, end_date, contract_type, total_value)
		VALUES (?, 'Engineering Support', 'GSA', '2026-01-01', '2026-12-31', ?, 500000)
	`, number, contractType)
	require.NoError(t, err, "seed contract")

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedAssignment(t *testing.T, db *sql.DB, employeeID, contractID int64, allocation, billRate float64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO employee_contracts (employee_id, contract_id, allocation_percentage, bill_rate, start_date)
		VALUES (?, ?, ?, ?, '2026-01-01')
	`, employeeID, contractID, allocation, billRate)
	require.NoError(t, err, "seed assignment")
}
