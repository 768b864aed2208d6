package ifta

import (
	"sort"
	"strings"
)

// jurisdictions lists the US states, DC and Canadian provinces/territories a
// ledger record may reference. Rates are only published for IFTA members.
var jurisdictions = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "DC": "District of Columbia",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "IA": "Iowa", "KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana",
	"ME": "Maine", "MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota",
	"TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",

	"AB": "Alberta", "BC": "British Columbia", "MB": "Manitoba", "NB": "New Brunswick",
	"NL": "Newfoundland and Labrador", "NS": "Nova Scotia", "NT": "Northwest Territories",
	"NU": "Nunavut", "ON": "Ontario", "PE": "Prince Edward Island", "QC": "Quebec",
	"SK": "Saskatchewan", "YT": "Yukon",
}

var nonMembers = map[string]bool{"AK": true, "HI": true, "DC": true, "NT": true, "NU": true, "YT": true}

// NormalizeJurisdiction trims and upper-cases a jurisdiction code.
func NormalizeJurisdiction(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsKnownJurisdiction reports whether code (after normalisation) is a recognised jurisdiction.
func IsKnownJurisdiction(code string) bool {
	_, ok := jurisdictions[NormalizeJurisdiction(code)]
	return ok
}

// IsMember reports whether the jurisdiction participates in IFTA.
func IsMember(code string) bool {
	code = NormalizeJurisdiction(code)
	return IsKnownJurisdiction(code) && !nonMembers[code]
}

// JurisdictionName returns the display name, or the code itself when unknown.
func JurisdictionName(code string) string {
	code = NormalizeJurisdiction(code)
	if name, ok := jurisdictions[code]; ok {
		return name
	}
	return code
}

// MemberJurisdictions returns the sorted IFTA member codes.
func MemberJurisdictions() []string {
	out := make([]string, 0, len(jurisdictions))
	for code := range jurisdictions {
		if !nonMembers[code] {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

func validateJurisdiction(kind, code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid(kind, "jurisdiction", "is required")
	}
	if !IsKnownJurisdiction(code) {
		return invalid(kind, "jurisdiction", "'"+code+"' is not a recognised jurisdiction code")
	}
	return nil
}
