package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fuel type constants
const (
	FuelTypeDiesel   = "diesel"
	FuelTypeGasoline = "gasoline"
	FuelTypeGasohol  = "gasohol"
	FuelTypePropane  = "propane"
	FuelTypeLNG      = "lng"
	FuelTypeCNG      = "cng"
)

// Decimal places of the ledger columns. Input with more places is rejected, not rounded.
const (
	MilesPlaces    = 2
	OdometerPlaces = 1
	GallonsPlaces  = 3
	PricePlaces    = 4
	MoneyPlaces    = 2
)

// MileageRecord is one leg of travel in a single jurisdiction. Records are
// immutable once written: they are only ever created or deleted.
type MileageRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_mileage_client_date" json:"client_id"`
	TripDate      time.Time           `gorm:"type:date;not null;index:idx_mileage_client_date" json:"trip_date"`
	Jurisdiction  string              `gorm:"type:varchar(2);not null;index" json:"jurisdiction"`
	VehicleID     string              `gorm:"type:varchar(50)" json:"vehicle_id"`
	Miles         decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"miles"`
	OdometerStart decimal.NullDecimal `gorm:"type:decimal(12,1)" json:"odometer_start"`
	OdometerEnd   decimal.NullDecimal `gorm:"type:decimal(12,1)" json:"odometer_end"`
	Notes         string              `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (m *MileageRecord) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// FuelPurchase is one fuel purchase in a single jurisdiction. Immutable like MileageRecord.
type FuelPurchase struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID        uuid.UUID           `gorm:"type:uuid;not null;index:idx_fuel_client_date;uniqueIndex:idx_fuel_client_receipt" json:"client_id"`
	PurchaseDate    time.Time           `gorm:"type:date;not null;index:idx_fuel_client_date" json:"purchase_date"`
	Jurisdiction    string              `gorm:"type:varchar(2);not null;index" json:"jurisdiction"`
	VehicleID       string              `gorm:"type:varchar(50)" json:"vehicle_id"`
	FuelType        string              `gorm:"type:varchar(20);not null;default:'diesel'" json:"fuel_type"`
	Gallons         decimal.Decimal     `gorm:"type:decimal(12,3);not null" json:"gallons"`
	PricePerGallon  decimal.Decimal     `gorm:"type:decimal(10,4);default:0" json:"price_per_gallon"`
	TotalCost       decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"total_cost"`
	TaxPaid         decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"tax_paid"`
	ReceiptNumber   string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_fuel_client_receipt" json:"receipt_number"`
	OdometerReading decimal.NullDecimal `gorm:"type:decimal(12,1)" json:"odometer_reading"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (f *FuelPurchase) BeforeCreate(_ *gorm.DB) error {
	assignID(&f.ID)
	return nil
}

// IsValidFuelType reports whether t is a fuel type the IFTA return recognises.
func IsValidFuelType(t string) bool {
	switch t {
	case FuelTypeDiesel, FuelTypeGasoline, FuelTypeGasohol, FuelTypePropane, FuelTypeLNG, FuelTypeCNG:
		return true
	}
	return false
}
