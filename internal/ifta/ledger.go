package ifta

import (
	"sort"

	"github.com/shopspring/decimal"
)

type jurisdictionTotals struct {
	miles   decimal.Decimal
	gallons decimal.Decimal
	taxPaid decimal.Decimal
}

type vehicleTotals struct {
	miles   decimal.Decimal
	gallons decimal.Decimal
	milesIn map[string]decimal.Decimal
}

// Ledger holds the per-jurisdiction and per-vehicle sums of one aggregation.
type Ledger struct {
	jurisdictions map[string]*jurisdictionTotals
	vehicles      map[string]*vehicleTotals
	fleetMiles    decimal.Decimal
	fleetGallons  decimal.Decimal
}

func newLedger() *Ledger {
	return &Ledger{
		jurisdictions: make(map[string]*jurisdictionTotals),
		vehicles:      make(map[string]*vehicleTotals),
	}
}

func (l *Ledger) jurisdiction(code string) *jurisdictionTotals {
	t, ok := l.jurisdictions[code]
	if !ok {
		t = &jurisdictionTotals{}
		l.jurisdictions[code] = t
	}
	return t
}

func (l *Ledger) vehicle(id string) *vehicleTotals {
	v, ok := l.vehicles[id]
	if !ok {
		v = &vehicleTotals{milesIn: make(map[string]decimal.Decimal)}
		l.vehicles[id] = v
	}
	return v
}

func (l *Ledger) addMileage(m Mileage) {
	code := NormalizeJurisdiction(m.Jurisdiction)
	j := l.jurisdiction(code)
	j.miles = j.miles.Add(m.Miles)

	v := l.vehicle(m.VehicleID)
	v.miles = v.miles.Add(m.Miles)
	v.milesIn[code] = v.milesIn[code].Add(m.Miles)

	l.fleetMiles = l.fleetMiles.Add(m.Miles)
}

func (l *Ledger) addFuel(f FuelPurchase) {
	j := l.jurisdiction(NormalizeJurisdiction(f.Jurisdiction))
	j.gallons = j.gallons.Add(f.Gallons)
	j.taxPaid = j.taxPaid.Add(f.TaxPaid)

	v := l.vehicle(f.VehicleID)
	v.gallons = v.gallons.Add(f.Gallons)

	l.fleetGallons = l.fleetGallons.Add(f.Gallons)
}

// Jurisdictions returns every code seen in either ledger, sorted.
func (l *Ledger) Jurisdictions() []string {
	out := make([]string, 0, len(l.jurisdictions))
	for code := range l.jurisdictions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Miles returns the miles driven in a jurisdiction.
func (l *Ledger) Miles(code string) decimal.Decimal {
	if t, ok := l.jurisdictions[code]; ok {
		return t.miles
	}
	return decimal.Zero
}

// Gallons returns the gallons purchased in a jurisdiction.
func (l *Ledger) Gallons(code string) decimal.Decimal {
	if t, ok := l.jurisdictions[code]; ok {
		return t.gallons
	}
	return decimal.Zero
}

// TaxPaid returns the tax paid at the pump in a jurisdiction.
func (l *Ledger) TaxPaid(code string) decimal.Decimal {
	if t, ok := l.jurisdictions[code]; ok {
		return t.taxPaid
	}
	return decimal.Zero
}

func (l *Ledger) FleetMiles() decimal.Decimal   { return l.fleetMiles }
func (l *Ledger) FleetGallons() decimal.Decimal { return l.fleetGallons }

// Vehicles returns the vehicle ids seen in the ledger, sorted. Records without a
// vehicle id are grouped under the empty id.
func (l *Ledger) Vehicles() []string {
	out := make([]string, 0, len(l.vehicles))
	for id := range l.vehicles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// VehicleTotals returns a vehicle's total miles and gallons.
func (l *Ledger) VehicleTotals(id string) (miles, gallons decimal.Decimal) {
	if v, ok := l.vehicles[id]; ok {
		return v.miles, v.gallons
	}
	return decimal.Zero, decimal.Zero
}

// VehicleMiles returns the miles a vehicle drove in a jurisdiction.
func (l *Ledger) VehicleMiles(id, code string) decimal.Decimal {
	if v, ok := l.vehicles[id]; ok {
		return v.milesIn[code]
	}
	return decimal.Zero
}
