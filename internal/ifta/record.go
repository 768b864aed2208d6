package ifta

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mileage is one leg of travel inside a single jurisdiction.
type Mileage struct {
	Date          time.Time
	Jurisdiction  string
	VehicleID     string
	Miles         decimal.Decimal
	OdometerStart *decimal.Decimal
	OdometerEnd   *decimal.Decimal
}

// Validate enforces the ingestion rules for a mileage record.
// Odometer readings are optional, but when both are present they must agree with Miles.
func (m Mileage) Validate() error {
	if err := validateJurisdiction("mileage", m.Jurisdiction); err != nil {
		return err
	}
	if !m.Miles.IsPositive() {
		return invalid("mileage", "miles", "must be greater than 0")
	}
	if m.OdometerStart == nil || m.OdometerEnd == nil {
		return nil
	}
	if m.OdometerStart.IsNegative() {
		return invalid("mileage", "odometer_start", "must not be negative")
	}
	if m.OdometerEnd.LessThan(*m.OdometerStart) {
		return invalid("mileage", "odometer_end", "must not be lower than odometer_start")
	}
	if !m.OdometerEnd.Sub(*m.OdometerStart).Equal(m.Miles) {
		return invalid("mileage", "miles", "must equal odometer_end - odometer_start")
	}
	return nil
}

// FuelPurchase is one fuel purchase inside a single jurisdiction.
type FuelPurchase struct {
	Date          time.Time
	Jurisdiction  string
	VehicleID     string
	Gallons       decimal.Decimal
	TaxPaid       decimal.Decimal
	ReceiptNumber string
}

// Validate enforces the ingestion rules for a fuel purchase.
func (f FuelPurchase) Validate() error {
	if err := validateJurisdiction("fuel_purchase", f.Jurisdiction); err != nil {
		return err
	}
	if !f.Gallons.IsPositive() {
		return invalid("fuel_purchase", "gallons", "must be greater than 0")
	}
	if f.TaxPaid.IsNegative() {
		return invalid("fuel_purchase", "tax_paid", "must not be negative")
	}
	return nil
}
