package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
)

// ParseError reports a date/time string that could not be resolved.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%q is not a valid date", e.Input)
	}
	return fmt.Sprintf("%q is not a valid date: %s", e.Input, e.Reason)
}

// Parser resolves free-form date/time strings such as "1996-01-25",
// "6/13/2014", "January 1, 2025", "7pm PT", "tomorrow noon" or
// "2023-04-12 19:00:00 PT". Date and clock forms are matched by the
// olebedev/when rule engine; the words left over must name a zone.
//
// Missing time of day defaults to midnight. A missing date (time-only
// input) resolves to the current day in the resolved zone, and a missing
// year to the current year.
type Parser struct {
	// Location is used when the input names no zone. Nil means time.Local.
	Location *time.Location
	// Now supplies the reference day. Nil means time.Now.
	Now func() time.Time
}

var (
	isoSeparatorRe = regexp.MustCompile(`(\d)[Tt](\d)`)
	offsetRe       = regexp.MustCompile(`(?i)^(?:utc|gmt)?([+-])(\d{1,2})(?::?(\d{2}))?$`)
)

var fillerWords = map[string]bool{
	"at": true, "on": true, "the": true, "of": true, "@": true,
	"sun": true, "mon": true, "tue": true, "tues": true, "wed": true, "thu": true, "thur": true, "thurs": true, "fri": true, "sat": true,
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true,
}

// Parse resolves s to an instant. It fails with *ParseError when no date
// or time can be found, when components are out of range, or when
// unrecognized words remain.
func (p *Parser) Parse(s string) (time.Time, error) {
	input := s
	work := strings.TrimSpace(s)
	if work == "" {
		return time.Time{}, &ParseError{Input: input, Reason: "empty"}
	}
	work = strings.ReplaceAll(work, ",", " ")
	work = isoSeparatorRe.ReplaceAllString(work, "$1 $2")

	m, err := match(work, p.now().In(p.location()))
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: err.Error()}
	}
	if m == nil {
		return time.Time{}, &ParseError{Input: input}
	}

	loc, err := p.resolveZone(m.rest())
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: err.Error()}
	}

	t, ok := m.at(p.now().In(loc), loc)
	if !ok {
		return time.Time{}, &ParseError{Input: input, Reason: "day out of range for month"}
	}
	return t, nil
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Parser) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

// matched collects what the rules of one parse applied: the shared rule
// context and the byte spans each applied rule consumed.
type matched struct {
	text  string
	ctx   *rules.Context
	spans [][2]int
}

// match runs ruleSet over text. It returns nil when no rule applies.
func match(text string, ref time.Time) (*matched, error) {
	m := &matched{text: text}
	w := when.New(&rules.Options{Distance: len(text), MatchByOrder: true})
	for _, r := range ruleSet {
		w.Add(m.track(r))
	}
	res, err := w.Parse(text, ref)
	if err != nil {
		return nil, err
	}
	if res == nil || m.ctx == nil {
		return nil, nil
	}
	return m, nil
}

type ruleFunc func(string) *rules.Match

func (f ruleFunc) Find(text string) *rules.Match { return f(text) }

// track wraps r so that a successful apply records its span and context.
func (m *matched) track(r rules.Rule) rules.Rule {
	return ruleFunc(func(text string) *rules.Match {
		found := r.Find(text)
		if found == nil {
			return nil
		}
		apply := found.Applier
		found.Applier = func(fm *rules.Match, c *rules.Context, o *rules.Options, ref time.Time) (bool, error) {
			ok, err := apply(fm, c, o, ref)
			if ok && err == nil {
				m.ctx = c
				m.spans = append(m.spans, [2]int{fm.Left, fm.Right})
			}
			return ok, err
		}
		return found
	})
}

// rest is the text with every applied span blanked out.
func (m *matched) rest() string {
	b := []byte(m.text)
	for _, sp := range m.spans {
		for i := sp[0]; i < sp[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

// at builds the instant in loc. Fields the rules did not set come from
// ref, shifted by any whole-day offset; the clock defaults to midnight.
// ok is false when the day does not exist in the month.
func (m *matched) at(ref time.Time, loc *time.Location) (time.Time, bool) {
	c := m.ctx
	year, month, day := ref.AddDate(0, 0, int(c.Duration/(24*time.Hour))).Date()
	if c.Year != nil {
		year = *c.Year
	}
	if c.Month != nil {
		month = time.Month(*c.Month)
	}
	if c.Day != nil {
		day = *c.Day
	}
	t := time.Date(year, month, day, value(c.Hour), value(c.Minute), value(c.Second), 0, loc)
	return t, t.Day() == day && t.Month() == month
}

func value(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// resolveZone interprets the words left after the date and time are
// removed. A US abbreviation wins over a numeric offset; with neither the
// parser's default location is used. Unknown words are an error.
func (p *Parser) resolveZone(rest string) (*time.Location, error) {
	var usZone, otherZone *time.Location
	for _, field := range strings.Fields(rest) {
		lower := strings.ToLower(field)
		if fillerWords[lower] {
			continue
		}
		if loc, ok := LookupUSZone(field); ok {
			if usZone == nil {
				usZone = loc
			}
			continue
		}
		if loc, ok := lookupFixedZone(field); ok {
			otherZone = loc
			continue
		}
		if lower == "z" {
			otherZone = time.UTC
			continue
		}
		if m := offsetRe.FindStringSubmatch(field); m != nil {
			loc, err := offsetZone(m[1], m[2], m[3])
			if err != nil {
				return nil, err
			}
			otherZone = loc
			continue
		}
		if strings.Contains(field, "/") {
			if loc, err := time.LoadLocation(field); err == nil {
				otherZone = loc
				continue
			}
		}
		return nil, fmt.Errorf("unrecognized %q", field)
	}

	switch {
	case usZone != nil:
		return usZone, nil
	case otherZone != nil:
		return otherZone, nil
	default:
		return p.location(), nil
	}
}

func offsetZone(sign, hours, minutes string) (*time.Location, error) {
	h, _ := strconv.Atoi(hours)
	m := 0
	if minutes != "" {
		m, _ = strconv.Atoi(minutes)
	}
	if h > 14 || m > 59 {
		return nil, fmt.Errorf("offset %s%s out of range", sign, hours)
	}
	seconds := h*3600 + m*60
	if sign == "-" {
		seconds = -seconds
	}
	return fixedOffsetZone(seconds), nil
}
