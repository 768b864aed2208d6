// Package export renders a quarterly IFTA report as CSV or XLSX for filing worksheets.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Markers written in place of figures that could not be computed.
const (
	MarkerRateNotFound     = "RATE NOT FOUND"
	MarkerInsufficientData = "INSUFFICIENT DATA"
)

// ParseFormat accepts "csv" or "xlsx"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds e.g. "ifta_CA123456_2024Q3.csv".
func (f Format) Filename(license, period string) string {
	return "ifta_" + sanitize(license) + "_" + period + "." + string(f)
}

// Meta identifies whose report is being written.
type Meta struct {
	ClientName  string
	IFTALicense string
}

var columns = []string{
	"Jurisdiction", "Name", "Total Miles", "Total Gallons", "MPG", "Taxable Gallons",
	"Tax Rate (cents/gal)", "Tax Due", "Tax Paid", "Net Tax", "Status",
}

// cell is a rendered value; num is set for figures so spreadsheets keep them numeric.
type cell struct {
	text string
	num  *decimal.Decimal
}

func text(s string) cell { return cell{text: neutralizeFormula(s)} }

// neutralizeFormula quotes text a spreadsheet would evaluate as a formula.
// Numeric cells never pass through here, so negative figures are untouched.
func neutralizeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func number(d decimal.Decimal, places int32) cell {
	r := d.Round(places)
	return cell{text: d.StringFixed(places), num: &r}
}

func optional(d *decimal.Decimal, places int32, missing string) cell {
	if d == nil {
		return text(missing)
	}
	return number(*d, places)
}

// Write renders r in format f.
func Write(w io.Writer, f Format, meta Meta, r ifta.Report) error {
	table := buildTable(meta, r)
	switch f {
	case FormatCSV:
		return writeCSV(w, table)
	case FormatXLSX:
		return writeXLSX(w, r.Period.String(), table)
	}
	return eris.Errorf("export: unsupported format %q", f)
}

func buildTable(meta Meta, r ifta.Report) [][]cell {
	table := [][]cell{
		{text("Client"), text(meta.ClientName)},
		{text("IFTA License"), text(meta.IFTALicense)},
		{text("Period"), text(r.Period.String())},
		{text("MPG Strategy"), text(r.Strategy)},
		{},
	}

	header := make([]cell, len(columns))
	for i, c := range columns {
		header[i] = text(c)
	}
	table = append(table, header)

	for _, c := range r.Calculations {
		marker := ""
		switch c.Status {
		case ifta.StatusRateUnknown:
			marker = MarkerRateNotFound
		case ifta.StatusInsufficientData:
			marker = MarkerInsufficientData
		}

		table = append(table, []cell{
			text(c.Jurisdiction),
			text(ifta.JurisdictionName(c.Jurisdiction)),
			number(c.TotalMiles, 2),
			number(c.TotalGallons, 3),
			optional(c.MPG, 4, marker),
			optional(c.TaxableGallons, 3, marker),
			optional(c.TaxRate, 4, marker),
			optional(c.TaxDue, 2, marker),
			number(c.TaxPaid, 2),
			optional(c.NetTax, 2, marker),
			text(string(c.Status)),
		})
	}

	totals := r.Totals()
	fleetMPG := text(MarkerInsufficientData)
	if r.FleetMPG != nil {
		fleetMPG = number(*r.FleetMPG, 4)
	}
	table = append(table, []cell{
		text("TOTAL"),
		text(""),
		number(r.FleetMiles, 2),
		number(r.FleetGallons, 3),
		fleetMPG,
		text(""),
		text(""),
		number(totals.TaxDue, 2),
		number(totals.TaxPaid, 2),
		number(totals.NetTax, 2),
		text(flaggedSummary(totals.Flagged)),
	})
	return table
}

func flaggedSummary(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 jurisdiction flagged"
	}
	return strconv.Itoa(n) + " jurisdictions flagged"
}

func writeCSV(w io.Writer, table [][]cell) error {
	cw := csv.NewWriter(w)
	for _, row := range table {
		record := make([]string, len(row))
		for i, c := range row {
			record[i] = c.text
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

func writeXLSX(w io.Writer, sheetName string, table [][]cell) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	for _, row := range table {
		xr := sheet.AddRow()
		for _, c := range row {
			xc := xr.AddCell()
			if c.num != nil {
				v, _ := c.num.Float64()
				xc.SetFloat(v)
				continue
			}
			xc.SetString(c.text)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}
