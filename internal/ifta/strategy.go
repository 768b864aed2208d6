package ifta

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Allocation is how many gallons a strategy attributes to a jurisdiction, and the MPG it used.
type Allocation struct {
	MPG            decimal.Decimal
	TaxableGallons decimal.Decimal
}

// MPGStrategy decides how fuel consumed in a jurisdiction is estimated from miles driven.
// Allocate returns ErrUndefinedMPG when the ledger holds no fuel to derive MPG from.
type MPGStrategy interface {
	Name() string
	Allocate(l *Ledger, jurisdiction string) (Allocation, error)
}

const (
	StrategyFleet        = "fleet"
	StrategyJurisdiction = "jurisdiction"
	StrategyVehicle      = "vehicle"
)

// ParseStrategy maps a strategy name to its implementation. An empty name selects FleetWideMPG.
func ParseStrategy(name string) (MPGStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyFleet:
		return FleetWideMPG{}, nil
	case StrategyJurisdiction:
		return PerJurisdictionMPG{}, nil
	case StrategyVehicle:
		return PerVehicleMPG{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// FleetWideMPG derives a single MPG from fleet totals and applies it to every
// jurisdiction. Gallons consumed per jurisdiction are estimated, not measured.
type FleetWideMPG struct{}

func (FleetWideMPG) Name() string { return StrategyFleet }

func (FleetWideMPG) Allocate(l *Ledger, jurisdiction string) (Allocation, error) {
	if l.FleetGallons().IsZero() {
		return Allocation{}, ErrUndefinedMPG
	}
	mpg := l.FleetMiles().Div(l.FleetGallons())
	miles := l.Miles(jurisdiction)
	if miles.IsZero() {
		return Allocation{MPG: mpg, TaxableGallons: decimal.Zero}, nil
	}
	return Allocation{MPG: mpg, TaxableGallons: miles.Div(mpg)}, nil
}

// PerJurisdictionMPG uses each jurisdiction's own miles and gallons, so taxable
// gallons equal gallons purchased wherever miles were driven.
type PerJurisdictionMPG struct{}

func (PerJurisdictionMPG) Name() string { return StrategyJurisdiction }

func (PerJurisdictionMPG) Allocate(l *Ledger, jurisdiction string) (Allocation, error) {
	miles, gallons := l.Miles(jurisdiction), l.Gallons(jurisdiction)
	if miles.IsZero() {
		return Allocation{MPG: decimal.Zero, TaxableGallons: decimal.Zero}, nil
	}
	if gallons.IsZero() {
		return Allocation{}, ErrUndefinedMPG
	}
	mpg := miles.Div(gallons)
	return Allocation{MPG: mpg, TaxableGallons: miles.Div(mpg)}, nil
}

// PerVehicleMPG blends vehicle efficiencies: each vehicle's miles in the
// jurisdiction are divided by that vehicle's own MPG. The reported MPG is the
// effective jurisdiction figure (miles / taxable gallons).
type PerVehicleMPG struct{}

func (PerVehicleMPG) Name() string { return StrategyVehicle }

func (PerVehicleMPG) Allocate(l *Ledger, jurisdiction string) (Allocation, error) {
	taxable := decimal.Zero
	for _, id := range l.Vehicles() {
		miles := l.VehicleMiles(id, jurisdiction)
		if miles.IsZero() {
			continue
		}
		vMiles, vGallons := l.VehicleTotals(id)
		if vGallons.IsZero() {
			return Allocation{}, ErrUndefinedMPG
		}
		taxable = taxable.Add(miles.Div(vMiles.Div(vGallons)))
	}
	if taxable.IsZero() {
		return Allocation{MPG: decimal.Zero, TaxableGallons: decimal.Zero}, nil
	}
	return Allocation{MPG: l.Miles(jurisdiction).Div(taxable), TaxableGallons: taxable}, nil
}
