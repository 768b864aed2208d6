package repository

import (
	"context"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MileageTotals and FuelTotals are the aggregate rows of one client/time range.
type MileageTotals struct {
	Miles decimal.Decimal
	Count int64
}

type FuelTotals struct {
	Gallons decimal.Decimal
	Cost    decimal.Decimal
	TaxPaid decimal.Decimal
	Count   int64
}

type StatisticsRepository interface {
	GetMileageTotals(ctx context.Context, clientID uuid.UUID, start, end time.Time) (MileageTotals, error)
	GetFuelTotals(ctx context.Context, clientID uuid.UUID, start, end time.Time) (FuelTotals, error)
	GetTopJurisdictions(ctx context.Context, clientID uuid.UUID, start, end time.Time, limit int) ([]model.JurisdictionRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// Sums are cast to text so no driver routes them through float64.
func (r *statisticsRepository) GetMileageTotals(ctx context.Context, clientID uuid.UUID, start, end time.Time) (MileageTotals, error) {
	var result struct {
		Miles string
		Count int64
	}
	if err := GetDB(ctx, r.db).Model(&model.MileageRecord{}).
		Select("COALESCE(CAST(SUM(miles) AS TEXT), '0') as miles, COUNT(*) as count").
		Where("client_id = ? AND trip_date >= ? AND trip_date <= ?", clientID, start, end).
		Scan(&result).Error; err != nil {
		return MileageTotals{}, eris.Wrap(err, "statistics: mileage totals")
	}

	miles, err := sumValue("miles", result.Miles, model.MilesPlaces)
	if err != nil {
		return MileageTotals{}, err
	}
	return MileageTotals{Miles: miles, Count: result.Count}, nil
}

func (r *statisticsRepository) GetFuelTotals(ctx context.Context, clientID uuid.UUID, start, end time.Time) (FuelTotals, error) {
	var result struct {
		Gallons string
		Cost    string
		TaxPaid string
		Count   int64
	}
	if err := GetDB(ctx, r.db).Model(&model.FuelPurchase{}).
		Select("COALESCE(CAST(SUM(gallons) AS TEXT), '0') as gallons, " +
			"COALESCE(CAST(SUM(total_cost) AS TEXT), '0') as cost, " +
			"COALESCE(CAST(SUM(tax_paid) AS TEXT), '0') as tax_paid, COUNT(*) as count").
		Where("client_id = ? AND purchase_date >= ? AND purchase_date <= ?", clientID, start, end).
		Scan(&result).Error; err != nil {
		return FuelTotals{}, eris.Wrap(err, "statistics: fuel totals")
	}

	totals := FuelTotals{Count: result.Count}
	var err error
	if totals.Gallons, err = sumValue("gallons", result.Gallons, model.GallonsPlaces); err != nil {
		return FuelTotals{}, err
	}
	if totals.Cost, err = sumValue("total_cost", result.Cost, model.MoneyPlaces); err != nil {
		return FuelTotals{}, err
	}
	if totals.TaxPaid, err = sumValue("tax_paid", result.TaxPaid, model.MoneyPlaces); err != nil {
		return FuelTotals{}, err
	}
	return totals, nil
}

func (r *statisticsRepository) GetTopJurisdictions(ctx context.Context, clientID uuid.UUID, start, end time.Time, limit int) ([]model.JurisdictionRanking, error) {
	var rows []struct {
		Jurisdiction string
		TotalMiles   string
		TripCount    int64
	}
	if err := GetDB(ctx, r.db).Model(&model.MileageRecord{}).
		Select("jurisdiction, CAST(SUM(miles) AS TEXT) as total_miles, COUNT(*) as trip_count").
		Where("client_id = ? AND trip_date >= ? AND trip_date <= ?", clientID, start, end).
		Group("jurisdiction").
		Order("SUM(miles) DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, eris.Wrap(err, "statistics: top jurisdictions")
	}

	rankings := make([]model.JurisdictionRanking, 0, len(rows))
	for _, row := range rows {
		miles, err := sumValue("miles", row.TotalMiles, model.MilesPlaces)
		if err != nil {
			return nil, err
		}
		rankings = append(rankings, model.JurisdictionRanking{Jurisdiction: row.Jurisdiction, TotalMiles: miles, TripCount: row.TripCount})
	}
	return rankings, nil
}

// sumValue parses a text SUM and trims it to the column scale; sqlite sums
// decimal columns as REAL and can leave binary noise past it.
func sumValue(column, value string, places int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "statistics: parse %s sum %q", column, value)
	}
	return d.Round(places), nil
}
