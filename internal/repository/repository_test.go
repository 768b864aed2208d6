package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/database"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedClient(t *testing.T, db *gorm.DB) *model.Client {
	t.Helper()
	c := &model.Client{Name: "Acme Freight", IFTALicense: "CA-" + uuid.NewString()[:8], BaseJurisdiction: "CA", Status: model.ClientStatusActive}
	require.NoError(t, NewClientRepository(db).Create(context.Background(), c))
	return c
}

func TestTaxRateRepository_FindActive(t *testing.T) {
	ctx := context.Background()
	repo := NewTaxRateRepository(newTestDB(t))

	oldEnd := day(2024, 6, 30)
	require.NoError(t, repo.Create(ctx, &model.TaxRate{Jurisdiction: "CA", CentsPerGallon: decimal.RequireFromString("47.3"), EffectiveFrom: day(2023, 7, 1), EffectiveTo: &oldEnd}))
	require.NoError(t, repo.Create(ctx, &model.TaxRate{Jurisdiction: "CA", CentsPerGallon: decimal.RequireFromString("51.1"), EffectiveFrom: day(2024, 7, 1)}))
	require.NoError(t, repo.Create(ctx, &model.TaxRate{Jurisdiction: "TX", CentsPerGallon: decimal.RequireFromString("20"), EffectiveFrom: day(2020, 1, 1)}))

	rate, err := repo.FindActive(ctx, "CA", day(2024, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, "47.3", rate.CentsPerGallon.String())

	rate, err = repo.FindActive(ctx, "CA", day(2024, 9, 30))
	require.NoError(t, err)
	assert.Equal(t, "51.1", rate.CentsPerGallon.String())

	_, err = repo.FindActive(ctx, "NV", day(2024, 9, 30))
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	active, err := repo.FindAllActive(ctx, day(2024, 9, 30))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "CA", active[0].Jurisdiction)
	assert.Equal(t, "TX", active[1].Jurisdiction)

	rates, total, err := repo.List(ctx, "CA", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.True(t, rates[0].EffectiveFrom.After(rates[1].EffectiveFrom))
}

func TestTaxRateRepository_CountOverlapping(t *testing.T) {
	ctx := context.Background()
	repo := NewTaxRateRepository(newTestDB(t))

	end := day(2024, 6, 30)
	existing := &model.TaxRate{Jurisdiction: "NV", CentsPerGallon: decimal.NewFromInt(27), EffectiveFrom: day(2024, 1, 1), EffectiveTo: &end}
	require.NoError(t, repo.Create(ctx, existing))

	n, err := repo.CountOverlapping(ctx, "NV", day(2024, 7, 1), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.CountOverlapping(ctx, "NV", day(2024, 6, 1), nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	before := day(2023, 12, 31)
	n, err = repo.CountOverlapping(ctx, "NV", day(2023, 1, 1), &before, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.CountOverlapping(ctx, "NV", day(2024, 2, 1), nil, &existing.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "a rate never overlaps itself")

	n, err = repo.CountOverlapping(ctx, "AZ", day(2024, 2, 1), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMileageRepository_Filters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := seedClient(t, db)
	other := seedClient(t, db)
	repo := NewMileageRepository(db)

	for _, rec := range []model.MileageRecord{
		{ClientID: client.ID, TripDate: day(2024, 7, 2), Jurisdiction: "CA", VehicleID: "T1", Miles: decimal.NewFromInt(250)},
		{ClientID: client.ID, TripDate: day(2024, 8, 9), Jurisdiction: "TX", VehicleID: "T2", Miles: decimal.NewFromInt(180)},
		{ClientID: client.ID, TripDate: day(2024, 10, 1), Jurisdiction: "TX", VehicleID: "T2", Miles: decimal.NewFromInt(99)},
		{ClientID: other.ID, TripDate: day(2024, 7, 3), Jurisdiction: "CA", VehicleID: "X", Miles: decimal.NewFromInt(1)},
	} {
		rec := rec
		require.NoError(t, repo.Create(ctx, &rec))
	}

	q3 := LedgerFilter{Start: day(2024, 7, 1), End: day(2024, 9, 30).Add(24*time.Hour - time.Nanosecond)}
	all, err := repo.ListAll(ctx, client.ID, q3)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "CA", all[0].Jurisdiction)

	page, total, err := repo.List(ctx, client.ID, LedgerFilter{Jurisdiction: "TX"}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, day(2024, 10, 1), page[0].TripDate.UTC())

	require.NoError(t, repo.Delete(ctx, all[0].ID))
	_, err = repo.FindByID(ctx, all[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFuelPurchaseRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := seedClient(t, db)
	repo := NewFuelPurchaseRepository(db)

	p := &model.FuelPurchase{
		ClientID: client.ID, PurchaseDate: day(2024, 7, 5), Jurisdiction: "CA", FuelType: model.FuelTypeDiesel,
		Gallons: decimal.NewFromInt(100), TaxPaid: decimal.RequireFromString("51.10"), ReceiptNumber: "R-1",
	}
	require.NoError(t, repo.Create(ctx, p))

	exists, err := repo.ReceiptExists(ctx, client.ID, "R-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ReceiptExists(ctx, uuid.New(), "R-1")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := *p
	dup.ID = uuid.Nil
	assert.Error(t, repo.Create(ctx, &dup), "unique index on client_id+receipt_number")

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.TaxPaid.Equal(decimal.RequireFromString("51.1")))
	assert.False(t, got.OdometerReading.Valid)
}

func TestStatisticsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := seedClient(t, db)

	miles := NewMileageRepository(db)
	fuel := NewFuelPurchaseRepository(db)
	require.NoError(t, miles.Create(ctx, &model.MileageRecord{ClientID: client.ID, TripDate: day(2024, 7, 2), Jurisdiction: "CA", Miles: decimal.NewFromInt(250)}))
	require.NoError(t, miles.Create(ctx, &model.MileageRecord{ClientID: client.ID, TripDate: day(2024, 7, 3), Jurisdiction: "TX", Miles: decimal.NewFromInt(100)}))
	require.NoError(t, miles.Create(ctx, &model.MileageRecord{ClientID: client.ID, TripDate: day(2024, 7, 4), Jurisdiction: "TX", Miles: decimal.NewFromInt(80)}))
	require.NoError(t, fuel.Create(ctx, &model.FuelPurchase{ClientID: client.ID, PurchaseDate: day(2024, 7, 2), Jurisdiction: "CA", Gallons: decimal.NewFromInt(100), TotalCost: decimal.NewFromInt(480), TaxPaid: decimal.RequireFromString("51.1"), ReceiptNumber: "A"}))

	repo := NewStatisticsRepository(db)
	start, end := day(2024, 7, 1), day(2024, 7, 31)

	mt, err := repo.GetMileageTotals(ctx, client.ID, start, end)
	require.NoError(t, err)
	assert.True(t, mt.Miles.Equal(decimal.NewFromInt(430)), mt.Miles.String())
	assert.EqualValues(t, 3, mt.Count)

	ft, err := repo.GetFuelTotals(ctx, client.ID, start, end)
	require.NoError(t, err)
	assert.True(t, ft.Gallons.Equal(decimal.NewFromInt(100)), ft.Gallons.String())
	assert.True(t, ft.Cost.Equal(decimal.NewFromInt(480)), ft.Cost.String())
	assert.True(t, ft.TaxPaid.Equal(decimal.RequireFromString("51.1")), ft.TaxPaid.String())
	assert.EqualValues(t, 1, ft.Count)

	top, err := repo.GetTopJurisdictions(ctx, client.ID, start, end, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "CA", top[0].Jurisdiction)
	assert.Equal(t, "TX", top[1].Jurisdiction)
	assert.EqualValues(t, 2, top[1].TripCount)
	assert.True(t, top[1].TotalMiles.Equal(decimal.NewFromInt(180)), top[1].TotalMiles.String())

	empty, err := repo.GetFuelTotals(ctx, client.ID, day(2025, 1, 1), day(2025, 1, 31))
	require.NoError(t, err)
	assert.True(t, empty.Gallons.IsZero())
	assert.Zero(t, empty.Count)
}

// Cent amounts that have no exact binary form must sum to the exact cent.
func TestStatisticsRepository_SumsAreExact(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := seedClient(t, db)
	fuel := NewFuelPurchaseRepository(db)
	for i, paid := range []string{"0.10", "0.20", "0.10", "0.20", "0.10", "0.20", "0.10"} {
		require.NoError(t, fuel.Create(ctx, &model.FuelPurchase{
			ClientID: client.ID, PurchaseDate: day(2024, 7, 2), Jurisdiction: "CA",
			Gallons: decimal.RequireFromString("0.1"), TaxPaid: decimal.RequireFromString(paid),
			ReceiptNumber: fmt.Sprintf("R-%d", i),
		}))
	}

	ft, err := NewStatisticsRepository(db).GetFuelTotals(ctx, client.ID, day(2024, 7, 1), day(2024, 7, 31))
	require.NoError(t, err)
	assert.Equal(t, "1.00", ft.TaxPaid.StringFixed(2))
	assert.Equal(t, "1", ft.TaxPaid.String())
	assert.Equal(t, "0.7", ft.Gallons.String())
}

func TestTransactionManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	clients := NewClientRepository(db)

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, clients.Create(txCtx, &model.Client{Name: "Gone", IFTALicense: "TX-1", BaseJurisdiction: "TX", Status: model.ClientStatusActive}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = clients.FindByLicense(ctx, "TX-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestClientRepository_FindByLicenseSeesDeleted(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	clients := NewClientRepository(db)
	c := seedClient(t, db)

	require.NoError(t, clients.Delete(ctx, c.ID))
	_, err := clients.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	held, err := clients.FindByLicense(ctx, c.IFTALicense)
	require.NoError(t, err)
	assert.Equal(t, c.ID, held.ID)
	assert.True(t, held.DeletedAt.Valid)
}

func TestAuditRepository_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewAuditRepository(db)

	user := &model.User{Username: "ops", Email: "ops@example.com", Password: "x", Role: model.RoleManager}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))

	require.NoError(t, repo.Log(ctx, &model.AuditLog{UserID: &user.ID, Action: model.ActionCreateClient, EntityID: "c-1"}))
	require.NoError(t, repo.Log(ctx, &model.AuditLog{UserID: &user.ID, Action: model.ActionUpdateClient, EntityID: "c-1"}))
	require.NoError(t, repo.Log(ctx, &model.AuditLog{Action: model.ActionImportTaxRates}))

	// An entry written inside a failed transaction is discarded with it.
	_ = NewTransactionManager(db).RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Log(txCtx, &model.AuditLog{Action: model.ActionDeleteClient, EntityID: "c-1"}))
		return errors.New("rollback")
	})

	logs, total, err := repo.List(ctx, AuditFilter{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 3)

	logs, total, err = repo.List(ctx, AuditFilter{EntityID: "c-1"}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].User)
	assert.Equal(t, "ops", logs[0].User.Username)

	_, total, err = repo.List(ctx, AuditFilter{UserID: &user.ID, Action: model.ActionUpdateClient}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
