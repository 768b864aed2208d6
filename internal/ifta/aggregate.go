// Package ifta computes quarterly IFTA fuel-tax positions from mileage and fuel ledgers.
//
// Aggregate is a pure function: it holds no state between calls and may be used
// concurrently for different clients or periods.
package ifta

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Status tags each per-jurisdiction result.
type Status string

const (
	StatusOK               Status = "ok"
	StatusRateUnknown      Status = "rate_unknown"
	StatusInsufficientData Status = "insufficient_data"
)

// Calculation is the derived tax position of one jurisdiction. Pointer fields are
// nil when they could not be computed; they are never defaulted to zero.
type Calculation struct {
	Jurisdiction   string
	TotalMiles     decimal.Decimal
	TotalGallons   decimal.Decimal
	TaxPaid        decimal.Decimal
	Status         Status
	MPG            *decimal.Decimal
	TaxRate        *decimal.Decimal // cents per gallon
	TaxableGallons *decimal.Decimal
	TaxDue         *decimal.Decimal
	NetTax         *decimal.Decimal
}

// Err maps a flagged status to its sentinel error, or nil when the row is computed.
func (c Calculation) Err() error {
	switch c.Status {
	case StatusRateUnknown:
		return ErrUnknownJurisdiction
	case StatusInsufficientData:
		return ErrUndefinedMPG
	}
	return nil
}

// Input is everything one aggregation consumes.
type Input struct {
	Period  Period // optional; when set, records dated outside it are rejected
	Rates   RateLookup
	Mileage []Mileage
	Fuel    []FuelPurchase
}

// Report is the aggregation result for one reporting period.
type Report struct {
	Period       Period
	Strategy     string
	FleetMiles   decimal.Decimal
	FleetGallons decimal.Decimal
	FleetMPG     *decimal.Decimal
	Calculations []Calculation
}

// Totals sums the computed rows of a report.
type Totals struct {
	TaxDue  decimal.Decimal
	TaxPaid decimal.Decimal
	NetTax  decimal.Decimal
	Flagged int
}

func (r Report) Totals() Totals {
	var t Totals
	for _, c := range r.Calculations {
		if c.Status != StatusOK {
			t.Flagged++
			continue
		}
		t.TaxDue = t.TaxDue.Add(*c.TaxDue)
		t.TaxPaid = t.TaxPaid.Add(c.TaxPaid)
		t.NetTax = t.NetTax.Add(*c.NetTax)
	}
	return t
}

// Aggregate groups the ledgers by jurisdiction and computes tax due and net tax for
// each one. Per-jurisdiction data problems are reported through Calculation.Status;
// an error is returned only for invalid records or a missing rate lookup.
// A nil strategy selects FleetWideMPG.
func Aggregate(in Input, strategy MPGStrategy) (Report, error) {
	if in.Rates == nil {
		return Report{}, errors.New("ifta: rate lookup is required")
	}
	if strategy == nil {
		strategy = FleetWideMPG{}
	}

	ledger := newLedger()
	for i, m := range in.Mileage {
		if err := m.Validate(); err != nil {
			return Report{}, fmt.Errorf("mileage[%d]: %w", i, err)
		}
		if !in.Period.IsZero() && !m.Date.IsZero() && !in.Period.Contains(m.Date) {
			return Report{}, fmt.Errorf("mileage[%d]: %w", i, invalid("mileage", "date", "is outside the reporting period "+in.Period.String()))
		}
		ledger.addMileage(m)
	}
	for i, f := range in.Fuel {
		if err := f.Validate(); err != nil {
			return Report{}, fmt.Errorf("fuel[%d]: %w", i, err)
		}
		if !in.Period.IsZero() && !f.Date.IsZero() && !in.Period.Contains(f.Date) {
			return Report{}, fmt.Errorf("fuel[%d]: %w", i, invalid("fuel_purchase", "date", "is outside the reporting period "+in.Period.String()))
		}
		ledger.addFuel(f)
	}

	report := Report{
		Period:       in.Period,
		Strategy:     strategy.Name(),
		FleetMiles:   ledger.FleetMiles(),
		FleetGallons: ledger.FleetGallons(),
	}
	if !ledger.FleetGallons().IsZero() {
		report.FleetMPG = ptr(ledger.FleetMiles().Div(ledger.FleetGallons()))
	}

	codes := ledger.Jurisdictions()
	report.Calculations = make([]Calculation, 0, len(codes))
	for _, code := range codes {
		report.Calculations = append(report.Calculations, calculate(ledger, code, in.Rates, strategy))
	}
	return report, nil
}

func calculate(l *Ledger, code string, rates RateLookup, strategy MPGStrategy) Calculation {
	c := Calculation{
		Jurisdiction: code,
		TotalMiles:   l.Miles(code),
		TotalGallons: l.Gallons(code),
		TaxPaid:      l.TaxPaid(code),
	}

	rate, found := rates.Lookup(code)
	if found {
		c.TaxRate = ptr(rate.CentsPerGallon)
	}

	alloc, err := strategy.Allocate(l, code)
	if err != nil {
		c.Status = StatusInsufficientData
		return c
	}
	c.MPG = ptr(alloc.MPG)
	c.TaxableGallons = ptr(alloc.TaxableGallons)

	if !found {
		c.Status = StatusRateUnknown
		return c
	}

	due := alloc.TaxableGallons.Mul(rate.DollarsPerGallon()).Round(2)
	c.TaxDue = ptr(due)
	c.NetTax = ptr(due.Sub(c.TaxPaid))
	c.Status = StatusOK
	return c
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
