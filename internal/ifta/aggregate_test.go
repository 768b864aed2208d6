package ifta

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func mustRates(t *testing.T, rates ...Rate) RateTable {
	t.Helper()
	table, err := NewRateTable(rates...)
	require.NoError(t, err)
	return table
}

func byJurisdiction(r Report) map[string]Calculation {
	out := make(map[string]Calculation, len(r.Calculations))
	for _, c := range r.Calculations {
		out[c.Jurisdiction] = c
	}
	return out
}

func caTexasInput(t *testing.T) Input {
	return Input{
		Rates: mustRates(t,
			Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")},
			Rate{Jurisdiction: "TX", CentsPerGallon: d("20.0")},
		),
		Mileage: []Mileage{
			{Jurisdiction: "CA", Miles: d("250")},
			{Jurisdiction: "TX", Miles: d("180")},
		},
		Fuel: []FuelPurchase{
			{Jurisdiction: "CA", Gallons: d("100"), TaxPaid: d("51.10")},
			{Jurisdiction: "TX", Gallons: d("80"), TaxPaid: d("16.00")},
		},
	}
}

func TestAggregate_CaliforniaTexasScenario(t *testing.T) {
	report, err := Aggregate(caTexasInput(t), FleetWideMPG{})
	require.NoError(t, err)

	assert.Equal(t, StrategyFleet, report.Strategy)
	assertDecimal(t, "430", report.FleetMiles)
	assertDecimal(t, "180", report.FleetGallons)
	require.NotNil(t, report.FleetMPG)
	assert.InDelta(t, 2.389, report.FleetMPG.InexactFloat64(), 0.001)

	rows := byJurisdiction(report)
	require.Len(t, rows, 2)

	ca := rows["CA"]
	assert.Equal(t, StatusOK, ca.Status)
	assertDecimal(t, "53.48", *ca.TaxDue)
	assertDecimal(t, "2.38", *ca.NetTax)
	assert.True(t, ca.NetTax.IsPositive(), "CA should be owed")

	tx := rows["TX"]
	assert.Equal(t, StatusOK, tx.Status)
	assertDecimal(t, "15.07", *tx.TaxDue)
	assertDecimal(t, "-0.93", *tx.NetTax)
	assert.True(t, tx.NetTax.IsNegative(), "TX should be a refund")

	totals := report.Totals()
	assertDecimal(t, "68.55", totals.TaxDue)
	assertDecimal(t, "67.10", totals.TaxPaid)
	assertDecimal(t, "1.45", totals.NetTax)
	assert.Zero(t, totals.Flagged)
}

func TestAggregate_JurisdictionSetIsUnionOfLedgers(t *testing.T) {
	in := Input{
		Rates: mustRates(t,
			Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")},
			Rate{Jurisdiction: "NV", CentsPerGallon: d("27")},
			Rate{Jurisdiction: "AZ", CentsPerGallon: d("26")},
		),
		Mileage: []Mileage{
			{Jurisdiction: "CA", Miles: d("100")},
			{Jurisdiction: "NV", Miles: d("40")},
		},
		Fuel: []FuelPurchase{
			{Jurisdiction: "CA", Gallons: d("20"), TaxPaid: d("10")},
			{Jurisdiction: "AZ", Gallons: d("15"), TaxPaid: d("3.90")},
		},
	}

	report, err := Aggregate(in, nil)
	require.NoError(t, err)

	var codes []string
	for _, c := range report.Calculations {
		codes = append(codes, c.Jurisdiction)
	}
	assert.Equal(t, []string{"AZ", "CA", "NV"}, codes)

	rows := byJurisdiction(report)
	assertDecimal(t, "0", rows["NV"].TotalGallons)
	assertDecimal(t, "0", rows["AZ"].TotalMiles)
}

func TestAggregate_NetTaxIdentity(t *testing.T) {
	in := caTexasInput(t)
	in.Mileage = append(in.Mileage, Mileage{Jurisdiction: "OK", Miles: d("77.7")})
	in.Fuel = append(in.Fuel, FuelPurchase{Jurisdiction: "OK", Gallons: d("12.345"), TaxPaid: d("2.34")})
	in.Rates = mustRates(t,
		Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")},
		Rate{Jurisdiction: "TX", CentsPerGallon: d("20.0")},
		Rate{Jurisdiction: "OK", CentsPerGallon: d("19")},
	)

	for _, strategy := range []MPGStrategy{FleetWideMPG{}, PerJurisdictionMPG{}, PerVehicleMPG{}} {
		report, err := Aggregate(in, strategy)
		require.NoError(t, err)
		for _, c := range report.Calculations {
			require.Equal(t, StatusOK, c.Status, strategy.Name())
			assert.Truef(t, c.NetTax.Equal(c.TaxDue.Sub(c.TaxPaid)), "%s/%s: net %s != due %s - paid %s",
				strategy.Name(), c.Jurisdiction, c.NetTax, c.TaxDue, c.TaxPaid)
		}
	}
}

func TestAggregate_ZeroFleetGallonsFlagsEveryJurisdiction(t *testing.T) {
	in := Input{
		Rates: mustRates(t,
			Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")},
			Rate{Jurisdiction: "TX", CentsPerGallon: d("20")},
		),
		Mileage: []Mileage{
			{Jurisdiction: "CA", Miles: d("250")},
			{Jurisdiction: "TX", Miles: d("180")},
		},
	}

	report, err := Aggregate(in, FleetWideMPG{})
	require.NoError(t, err)
	assert.Nil(t, report.FleetMPG)

	require.Len(t, report.Calculations, 2)
	for _, c := range report.Calculations {
		assert.Equal(t, StatusInsufficientData, c.Status)
		assert.ErrorIs(t, c.Err(), ErrUndefinedMPG)
		assert.Nil(t, c.MPG)
		assert.Nil(t, c.TaxDue)
		assert.Nil(t, c.NetTax)
		assert.NotNil(t, c.TaxRate, "known rate is still reported")
	}
	assert.Equal(t, 2, report.Totals().Flagged)
}

func TestAggregate_MissingRateIsFlaggedNotZero(t *testing.T) {
	in := caTexasInput(t)
	in.Rates = mustRates(t, Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")})

	report, err := Aggregate(in, FleetWideMPG{})
	require.NoError(t, err)

	tx := byJurisdiction(report)["TX"]
	assert.Equal(t, StatusRateUnknown, tx.Status)
	assert.ErrorIs(t, tx.Err(), ErrUnknownJurisdiction)
	assert.Nil(t, tx.TaxRate)
	assert.Nil(t, tx.TaxDue)
	assert.Nil(t, tx.NetTax)
	require.NotNil(t, tx.TaxableGallons)
	assert.True(t, tx.TaxableGallons.IsPositive())

	ca := byJurisdiction(report)["CA"]
	assert.Equal(t, StatusOK, ca.Status)

	totals := report.Totals()
	assert.Equal(t, 1, totals.Flagged)
	assertDecimal(t, "53.48", totals.TaxDue)
}

func TestAggregate_InsufficientDataTakesPrecedenceOverMissingRate(t *testing.T) {
	in := Input{
		Rates:   mustRates(t),
		Mileage: []Mileage{{Jurisdiction: "WY", Miles: d("10")}},
	}
	report, err := Aggregate(in, nil)
	require.NoError(t, err)
	require.Len(t, report.Calculations, 1)
	assert.Equal(t, StatusInsufficientData, report.Calculations[0].Status)
}

func TestAggregate_FuelOnlyJurisdictionIsPureRefund(t *testing.T) {
	in := caTexasInput(t)
	in.Fuel = append(in.Fuel, FuelPurchase{Jurisdiction: "NM", Gallons: d("30"), TaxPaid: d("5.63")})
	in.Rates = mustRates(t,
		Rate{Jurisdiction: "CA", CentsPerGallon: d("51.1")},
		Rate{Jurisdiction: "TX", CentsPerGallon: d("20.0")},
		Rate{Jurisdiction: "NM", CentsPerGallon: d("21")},
	)

	for _, strategy := range []MPGStrategy{FleetWideMPG{}, PerJurisdictionMPG{}, PerVehicleMPG{}} {
		report, err := Aggregate(in, strategy)
		require.NoError(t, err)

		nm := byJurisdiction(report)["NM"]
		assert.Equal(t, StatusOK, nm.Status, strategy.Name())
		assertDecimal(t, "0", nm.TotalMiles)
		assertDecimal(t, "0", *nm.TaxDue)
		assertDecimal(t, "-5.63", *nm.NetTax)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	in := caTexasInput(t)

	first, err := Aggregate(in, PerVehicleMPG{})
	require.NoError(t, err)
	second, err := Aggregate(in, PerVehicleMPG{})
	require.NoError(t, err)

	require.Equal(t, len(first.Calculations), len(second.Calculations))
	for i := range first.Calculations {
		a, b := first.Calculations[i], second.Calculations[i]
		assert.Equal(t, a.Jurisdiction, b.Jurisdiction)
		assert.Equal(t, a.Status, b.Status)
		assert.True(t, a.TaxDue.Equal(*b.TaxDue))
		assert.True(t, a.NetTax.Equal(*b.NetTax))
	}
}

func TestAggregate_NormalizesJurisdictionCodes(t *testing.T) {
	in := Input{
		Rates:   mustRates(t, Rate{Jurisdiction: "ca", CentsPerGallon: d("50")}),
		Mileage: []Mileage{{Jurisdiction: " ca", Miles: d("100")}, {Jurisdiction: "CA", Miles: d("100")}},
		Fuel:    []FuelPurchase{{Jurisdiction: "Ca", Gallons: d("40"), TaxPaid: d("20")}},
	}
	report, err := Aggregate(in, nil)
	require.NoError(t, err)
	require.Len(t, report.Calculations, 1)

	ca := report.Calculations[0]
	assert.Equal(t, "CA", ca.Jurisdiction)
	assertDecimal(t, "200", ca.TotalMiles)
	assertDecimal(t, "20", *ca.TaxDue)
	assertDecimal(t, "0", *ca.NetTax)
}

func TestAggregate_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"negative miles", Input{Mileage: []Mileage{{Jurisdiction: "CA", Miles: d("-1")}}}},
		{"zero gallons", Input{Fuel: []FuelPurchase{{Jurisdiction: "CA", Gallons: d("0")}}}},
		{"negative tax paid", Input{Fuel: []FuelPurchase{{Jurisdiction: "CA", Gallons: d("1"), TaxPaid: d("-0.01")}}}},
		{"empty jurisdiction", Input{Mileage: []Mileage{{Jurisdiction: "", Miles: d("1")}}}},
		{"unknown jurisdiction", Input{Fuel: []FuelPurchase{{Jurisdiction: "XX", Gallons: d("1")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Rates = RateTable{}
			_, err := Aggregate(tt.in, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestAggregate_RejectsRecordsOutsidePeriod(t *testing.T) {
	q1, err := Quarter(2024, 1)
	require.NoError(t, err)

	in := caTexasInput(t)
	in.Period = q1
	in.Mileage[0].Date = time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	in.Fuel[0].Date = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err = Aggregate(in, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "2024Q1")
}

func TestAggregate_RequiresRateLookup(t *testing.T) {
	_, err := Aggregate(Input{}, nil)
	require.Error(t, err)
}

func TestAggregate_EmptyLedgers(t *testing.T) {
	report, err := Aggregate(Input{Rates: RateTable{}}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Calculations)
	assert.Nil(t, report.FleetMPG)
}

func digest(r Report) string {
	opt := func(v *decimal.Decimal) string {
		if v == nil {
			return "nil"
		}
		return v.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s\n", r.Strategy, r.FleetMiles, r.FleetGallons, opt(r.FleetMPG))
	for _, c := range r.Calculations {
		fmt.Fprintf(&b, "%s %s %s %s %s %s %s %s %s\n", c.Jurisdiction, c.TotalMiles, c.TotalGallons, c.TaxPaid,
			c.Status, opt(c.MPG), opt(c.TaxableGallons), opt(c.TaxDue), opt(c.NetTax))
	}
	return b.String()
}

// Concurrent reports share one rate table and one input slice. Run with -race.
func TestAggregate_ConcurrentCallsShareInput(t *testing.T) {
	in := mixedFleet(t)
	strategies := []MPGStrategy{FleetWideMPG{}, PerJurisdictionMPG{}, PerVehicleMPG{}}

	want := make([]string, len(strategies))
	for i, s := range strategies {
		report, err := Aggregate(in, s)
		require.NoError(t, err)
		want[i] = digest(report)
	}

	const workers = 16
	got := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			report, err := Aggregate(in, strategies[w%len(strategies)])
			got[w], errs[w] = digest(report), err
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		require.NoError(t, errs[w])
		assert.Equal(t, want[w%len(strategies)], got[w], "worker %d", w)
	}
	assert.Len(t, in.Mileage, 3, "input must not be mutated")
}
