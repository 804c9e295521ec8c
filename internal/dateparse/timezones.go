package dateparse

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database so US abbreviations resolve on hosts without
	// /usr/share/zoneinfo.
	_ "time/tzdata"
)

// usZones maps common US timezone abbreviations to IANA zones. Standard,
// daylight and generic forms all map to the same zone; the zone decides
// the offset for the date at hand.
var usZones = map[string]string{
	// Standard time
	"ET":  "America/New_York",
	"EST": "America/New_York",
	"CT":  "America/Chicago",
	"CST": "America/Chicago",
	"MT":  "America/Denver",
	"MST": "America/Denver",
	"PT":  "America/Los_Angeles",
	"PST": "America/Los_Angeles",
	// Daylight saving time
	"EDT": "America/New_York",
	"CDT": "America/Chicago",
	"MDT": "America/Denver",
	"PDT": "America/Los_Angeles",
	// Other US zones
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST":  "Pacific/Honolulu",
	"HAST": "Pacific/Honolulu",
	"HADT": "Pacific/Honolulu",
	"CHST": "Pacific/Guam",
}

// genericNames is the reverse of usZones, used when writing and displaying
// times.
var genericNames = map[string]string{
	"America/New_York":    "ET",
	"America/Chicago":     "CT",
	"America/Denver":      "MT",
	"America/Los_Angeles": "PT",
	"America/Anchorage":   "AKT",
	"Pacific/Honolulu":    "HT",
	"Pacific/Guam":        "CHST",
}

// writeNames is like genericNames but restricted to abbreviations that
// parse back through usZones.
var writeNames = map[string]string{
	"America/New_York":    "ET",
	"America/Chicago":     "CT",
	"America/Denver":      "MT",
	"America/Los_Angeles": "PT",
	"America/Anchorage":   "AKST",
	"Pacific/Honolulu":    "HST",
	"Pacific/Guam":        "CHST",
}

// fixedZones holds non-US abbreviations as fixed offsets in seconds.
var fixedZones = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"WET":  0,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"EET":  2 * 3600,
	"EEST": 3 * 3600,
	"MSK":  3 * 3600,
	"IST":  5*3600 + 1800,
	"SGT":  8 * 3600,
	"HKT":  8 * 3600,
	"JST":  9 * 3600,
	"KST":  9 * 3600,
	"AEST": 10 * 3600,
	"AEDT": 11 * 3600,
	"NZST": 12 * 3600,
	"NZDT": 13 * 3600,
}

// LookupUSZone returns the IANA zone for a US abbreviation.
func LookupUSZone(abbr string) (*time.Location, bool) {
	name, ok := usZones[strings.ToUpper(abbr)]
	if !ok {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

func lookupFixedZone(abbr string) (*time.Location, bool) {
	abbr = strings.ToUpper(abbr)
	offset, ok := fixedZones[abbr]
	if !ok {
		return nil, false
	}
	if offset == 0 {
		return time.UTC, true
	}
	return fixedOffsetZone(offset), true
}

// fixedOffsetZone names the zone like "UTC+9" or "UTC+5:30".
func fixedOffsetZone(seconds int) *time.Location {
	if seconds == 0 {
		return time.UTC
	}
	sign := "+"
	abs := seconds
	if seconds < 0 {
		sign = "-"
		abs = -seconds
	}
	hours := abs / 3600
	minutes := (abs % 3600) / 60
	name := fmt.Sprintf("UTC%s%d", sign, hours)
	if minutes != 0 {
		name += fmt.Sprintf(":%02d", minutes)
	}
	return time.FixedZone(name, seconds)
}

// GenericName returns the short generic name of a zone for display: "PT"
// for America/Los_Angeles, "UTC" for UTC, the zone abbreviation at t
// otherwise (e.g. "UTC+9" for fixed offsets).
func GenericName(t time.Time) string {
	loc := t.Location()
	if name, ok := genericNames[loc.String()]; ok {
		return name
	}
	if loc == time.UTC {
		return "UTC"
	}
	abbr, offset := t.Zone()
	if abbr == "" || strings.HasPrefix(abbr, "+") || strings.HasPrefix(abbr, "-") {
		return fixedOffsetZone(offset).String()
	}
	return abbr
}

// zoneToken returns a token that Parse resolves back to loc, or "" when
// loc is the parser's default.
func zoneToken(t time.Time, def *time.Location) string {
	loc := t.Location()
	if def != nil && loc.String() == def.String() {
		return ""
	}
	if name, ok := writeNames[loc.String()]; ok {
		return name
	}
	if loc == time.UTC {
		return "UTC"
	}
	if name := loc.String(); name != "" && name != "Local" {
		if _, err := time.LoadLocation(name); err == nil {
			return name
		}
	}
	return t.Format("-07:00")
}
