package ifta

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a jurisdiction's statutory fuel tax.
type Rate struct {
	Jurisdiction   string
	CentsPerGallon decimal.Decimal
	EffectiveFrom  time.Time
}

// Validate rejects rates that could never be applied.
func (r Rate) Validate() error {
	if err := validateJurisdiction("tax_rate", r.Jurisdiction); err != nil {
		return err
	}
	if r.CentsPerGallon.IsNegative() {
		return invalid("tax_rate", "cents_per_gallon", "must not be negative")
	}
	return nil
}

// DollarsPerGallon converts the statutory rate for use against gallon totals.
func (r Rate) DollarsPerGallon() decimal.Decimal {
	return r.CentsPerGallon.Div(decimal.NewFromInt(100))
}

// RateLookup resolves the rate for a jurisdiction. The boolean is false when no
// rate is known; callers must not treat that as a zero rate.
type RateLookup interface {
	Lookup(jurisdiction string) (Rate, bool)
}

// RateTable is an in-memory RateLookup holding one rate per jurisdiction.
type RateTable map[string]Rate

// NewRateTable builds a table, keeping the most recent rate when a jurisdiction repeats.
func NewRateTable(rates ...Rate) (RateTable, error) {
	t := make(RateTable, len(rates))
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		code := NormalizeJurisdiction(r.Jurisdiction)
		r.Jurisdiction = code
		if prev, ok := t[code]; ok && prev.EffectiveFrom.After(r.EffectiveFrom) {
			continue
		}
		t[code] = r
	}
	return t, nil
}

func (t RateTable) Lookup(jurisdiction string) (Rate, bool) {
	r, ok := t[NormalizeJurisdiction(jurisdiction)]
	return r, ok
}
