package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/StamperDavid/rapid-crm-sub009/internal/database"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schedule = `
effective_from: 2024-01-01
rates:
  - jurisdiction: CA
    cents_per_gallon: 51.1
  - jurisdiction: TX
    cents_per_gallon: 20.0
`

// run executes one iftactl invocation against the sqlite file at dbPath.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	dsn, dryRun, listJurisdiction = "", false, ""
	listPage, listLimit = 1, 100
	reportStrategy, reportFormat, reportOut = "", "csv", "."
	newUser = service.CreateUserRequest{Role: model.RoleAdmin}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--database", dbPath))
	err := execute()
	return out.String(), err
}

// seedLedger records the CA/TX quarter directly through the service layer.
func seedLedger(t *testing.T, dbPath string) string {
	t.Helper()
	conn, err := database.NewConnection(dbPath)
	require.NoError(t, err)
	defer func() {
		sqlDB, err := conn.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	}()

	ctx := context.Background()
	clientRepo := repository.NewClientRepository(conn)
	auditRepo := repository.NewAuditRepository(conn)
	clients := service.NewClientService(clientRepo, auditRepo)
	ledgers := service.NewLedgerService(clientRepo, repository.NewMileageRepository(conn), repository.NewFuelPurchaseRepository(conn),
		auditRepo, repository.NewTransactionManager(conn), nil)

	c, err := clients.CreateClient(ctx, "", service.ClientRequest{Name: "Acme Freight", IFTALicense: "CA123456", BaseJurisdiction: "CA"})
	require.NoError(t, err)

	for _, m := range []service.MileageRequest{
		{TripDate: "2024-07-15", Jurisdiction: "CA", Miles: "250"},
		{TripDate: "2024-08-02", Jurisdiction: "TX", Miles: "180"},
	} {
		_, err := ledgers.CreateMileage(ctx, "", c.ID, m)
		require.NoError(t, err)
	}
	for _, f := range []service.FuelPurchaseRequest{
		{PurchaseDate: "2024-07-14", Jurisdiction: "CA", Gallons: "100", TaxPaid: "51.10", ReceiptNumber: "R-1"},
		{PurchaseDate: "2024-09-30", Jurisdiction: "TX", Gallons: "80", TaxPaid: "16.00", ReceiptNumber: "R-2"},
	} {
		_, err := ledgers.CreateFuelPurchase(ctx, "", c.ID, f)
		require.NoError(t, err)
	}
	return c.ID
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ifta.db")
	out, err := run(t, dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
	assert.FileExists(t, dbPath)
}

func TestRatesImport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ifta.db")
	file := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(file, []byte(schedule), 0o644))

	out, err := run(t, dbPath, "rates", "import", file, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rates valid, nothing written")
	assert.Contains(t, out, "51.1")

	out, err = run(t, dbPath, "rates", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "51.1", "dry run must not write")

	out, err = run(t, dbPath, "rates", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 rates")

	out, err = run(t, dbPath, "rates", "list", "--jurisdiction", "TX")
	require.NoError(t, err)
	assert.Contains(t, out, "TX")
	assert.NotContains(t, out, "51.1")

	_, err = run(t, dbPath, "rates", "import", file)
	require.Error(t, err, "overlapping schedule")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = run(t, dbPath, "rates", "import", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ifta.db")
	file := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(file, []byte(schedule), 0o644))

	clientID := seedLedger(t, dbPath)
	_, err := run(t, dbPath, "rates", "import", file)
	require.NoError(t, err)

	out, err := run(t, dbPath, "report", clientID, "2024", "3", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tax_due": "53.48"`)
	assert.Contains(t, out, `"total_net_tax": "1.45"`)

	out, err = run(t, dbPath, "report", clientID, "2024", "3", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "53.48")

	filings := filepath.Join(dir, "filings")
	require.NoError(t, os.Mkdir(filings, 0o755))
	out, err = run(t, dbPath, "report", clientID, "2024", "3", "--format", "xlsx", "--out", filings)
	require.NoError(t, err)
	path := filepath.Join(filings, "ifta_CA123456_2024Q3.xlsx")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, dbPath, "report", clientID, "2024", "5")
	assert.Error(t, err)
	_, err = run(t, dbPath, "report", clientID, "year", "3")
	assert.Error(t, err)
	_, err = run(t, dbPath, "report", clientID, "2024", "3", "--format", "pdf")
	assert.Error(t, err)
}

func TestUserCreate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ifta.db")

	out, err := run(t, dbPath, "user", "create", "--username", "root", "--email", "root@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin root")

	_, err = run(t, dbPath, "user", "create", "--username", "root", "--email", "other@example.com", "--password", "secret1")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = run(t, dbPath, "user", "create", "--username", "short", "--email", "s@example.com", "--password", "abc")
	assert.Error(t, err)
}
