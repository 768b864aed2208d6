// Package ratefile reads quarterly IFTA fuel tax rate schedules from YAML.
//
// A schedule lists one rate per jurisdiction sharing a common effective window:
//
//	quarter: 2024Q3
//	effective_from: 2024-07-01
//	effective_to: 2024-09-30   # optional, open ended when omitted
//	rates:
//	  - jurisdiction: CA
//	    cents_per_gallon: 102.0
//	  - jurisdiction: TX
//	    cents_per_gallon: 20
//	    effective_from: 2024-08-01   # per-entry override
package ratefile

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Schedule is a parsed rate file.
type Schedule struct {
	Quarter       string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Entries       []Entry
}

// Entry is one jurisdiction's rate with its resolved effective window.
type Entry struct {
	Jurisdiction   string
	CentsPerGallon decimal.Decimal
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	Description    string
}

type rawSchedule struct {
	Quarter       string     `yaml:"quarter"`
	EffectiveFrom string     `yaml:"effective_from"`
	EffectiveTo   string     `yaml:"effective_to"`
	Rates         []rawEntry `yaml:"rates"`
}

type rawEntry struct {
	Jurisdiction   string `yaml:"jurisdiction"`
	CentsPerGallon cents  `yaml:"cents_per_gallon"`
	EffectiveFrom  string `yaml:"effective_from"`
	EffectiveTo    string `yaml:"effective_to"`
	Description    string `yaml:"description"`
}

// cents keeps the literal YAML scalar so 51.1 does not pass through float64.
type cents struct {
	value decimal.Decimal
	set   bool
}

func (c *cents) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("line %d: cents_per_gallon must be a number", node.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return eris.Errorf("line %d: invalid cents_per_gallon %q", node.Line, node.Value)
	}
	c.value, c.set = d, true
	return nil
}

// LoadFile parses the schedule at path.
func LoadFile(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ratefile: open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a schedule. Jurisdictions are normalized and must
// be known; a jurisdiction may appear only once per file.
func Parse(r io.Reader) (*Schedule, error) {
	var raw rawSchedule
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "ratefile: decode")
	}

	s := &Schedule{Quarter: strings.TrimSpace(raw.Quarter)}

	from, to, err := window(raw.EffectiveFrom, raw.EffectiveTo, time.Time{}, nil)
	if err != nil {
		return nil, err
	}
	if from.IsZero() && s.Quarter != "" {
		period, err := parseQuarter(s.Quarter)
		if err != nil {
			return nil, err
		}
		from = period.Start
		if to == nil {
			end := period.End
			to = &end
		}
	}
	s.EffectiveFrom, s.EffectiveTo = from, to

	if len(raw.Rates) == 0 {
		return nil, eris.New("ratefile: no rates listed")
	}

	seen := make(map[string]bool, len(raw.Rates))
	for i, re := range raw.Rates {
		code := ifta.NormalizeJurisdiction(re.Jurisdiction)
		if !ifta.IsKnownJurisdiction(code) {
			return nil, eris.Errorf("ratefile: rates[%d]: unknown jurisdiction %q", i, re.Jurisdiction)
		}
		if seen[code] {
			return nil, eris.Errorf("ratefile: rates[%d]: duplicate jurisdiction %s", i, code)
		}
		seen[code] = true

		if !re.CentsPerGallon.set {
			return nil, eris.Errorf("ratefile: rates[%d]: cents_per_gallon is required", i)
		}

		entryFrom, entryTo, err := window(re.EffectiveFrom, re.EffectiveTo, s.EffectiveFrom, s.EffectiveTo)
		if err != nil {
			return nil, eris.Wrapf(err, "ratefile: rates[%d]", i)
		}
		if entryFrom.IsZero() {
			return nil, eris.Errorf("ratefile: rates[%d]: effective_from is required", i)
		}

		rate := ifta.Rate{Jurisdiction: code, CentsPerGallon: re.CentsPerGallon.value, EffectiveFrom: entryFrom}
		if err := rate.Validate(); err != nil {
			return nil, eris.Wrapf(err, "ratefile: rates[%d]", i)
		}

		desc := re.Description
		if desc == "" && s.Quarter != "" {
			desc = "IFTA " + s.Quarter
		}
		s.Entries = append(s.Entries, Entry{
			Jurisdiction:   code,
			CentsPerGallon: re.CentsPerGallon.value,
			EffectiveFrom:  entryFrom,
			EffectiveTo:    entryTo,
			Description:    desc,
		})
	}

	return s, nil
}

// window resolves an effective range, falling back to the schedule defaults.
func window(fromStr, toStr string, defFrom time.Time, defTo *time.Time) (time.Time, *time.Time, error) {
	from, to := defFrom, defTo
	if fromStr != "" {
		t, err := time.Parse(dateLayout, strings.TrimSpace(fromStr))
		if err != nil {
			return time.Time{}, nil, eris.Errorf("invalid effective_from %q (expected YYYY-MM-DD)", fromStr)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse(dateLayout, strings.TrimSpace(toStr))
		if err != nil {
			return time.Time{}, nil, eris.Errorf("invalid effective_to %q (expected YYYY-MM-DD)", toStr)
		}
		to = &t
	}
	if to != nil && !from.IsZero() && to.Before(from) {
		return time.Time{}, nil, eris.New("effective_to is before effective_from")
	}
	return from, to, nil
}

// parseQuarter reads "2024Q3" or "2024-Q3".
func parseQuarter(s string) (ifta.Period, error) {
	up := strings.ToUpper(strings.ReplaceAll(s, "-", ""))
	var year, q int
	if len(up) != 6 || up[4] != 'Q' {
		return ifta.Period{}, eris.Errorf("ratefile: invalid quarter %q (expected e.g. 2024Q3)", s)
	}
	for _, r := range up[:4] {
		if r < '0' || r > '9' {
			return ifta.Period{}, eris.Errorf("ratefile: invalid quarter %q (expected e.g. 2024Q3)", s)
		}
		year = year*10 + int(r-'0')
	}
	q = int(up[5] - '0')
	p, err := ifta.Quarter(year, q)
	if err != nil {
		return ifta.Period{}, eris.Wrapf(err, "ratefile: invalid quarter %q", s)
	}
	return p, nil
}
