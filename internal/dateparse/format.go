package dateparse

import "time"

const (
	dateLayout     = "January 2, 2006"
	dateTimeLayout = "January 2, 2006 3:04 PM"
)

// Format renders t so that p.Parse returns the same instant (to the
// minute): "January 25, 2024" for midnight in the default zone, otherwise
// "January 25, 2024 7:47 PM ET" with a zone token when t is not in the
// parser's default location.
func (p *Parser) Format(t time.Time) string {
	zone := zoneToken(t, p.location())
	if zone == "" && t.Hour() == 0 && t.Minute() == 0 {
		return t.Format(dateLayout)
	}
	out := t.Format(dateTimeLayout)
	if zone != "" {
		out += " " + zone
	}
	return out
}
