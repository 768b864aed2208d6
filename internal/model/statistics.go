package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatistics summarises a client's ledgers over a time range
type LedgerStatistics struct {
	TripCount        int64                `json:"trip_count"`
	PurchaseCount    int64                `json:"purchase_count"`
	TotalMiles       decimal.Decimal      `json:"total_miles"`
	TotalGallons     decimal.Decimal      `json:"total_gallons"`
	TotalFuelCost    decimal.Decimal      `json:"total_fuel_cost"`
	TotalTaxPaid     decimal.Decimal      `json:"total_tax_paid"`
	FleetMPG         *decimal.Decimal     `json:"fleet_mpg"` // nil when no fuel was bought
	TopJurisdictions []JurisdictionRanking `json:"top_jurisdictions"`
	TimeRangeStart   time.Time            `json:"time_range_start_date"`
	TimeRangeEnd     time.Time            `json:"time_range_end_date"`
}

// JurisdictionRanking ranks jurisdictions by miles driven
type JurisdictionRanking struct {
	Jurisdiction string          `json:"jurisdiction"`
	TotalMiles   decimal.Decimal `json:"total_miles"`
	TripCount    int64           `json:"trip_count"`
}
