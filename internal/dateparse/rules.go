package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"
)

// ruleSet lists the date and clock forms in precedence order. All forms
// use the Skip strategy: once a date or a clock is set, later matches of
// the same kind are left in the text and rejected as unrecognized.
var ruleSet = []rules.Rule{
	isoDate(),
	numericDate(),
	monthDayYear(),
	dayMonthYear(),
	casualDay(),
	clockTime(),
	meridiemHour(),
	midnight(),
	en.CasualTime(rules.Skip),
}

const meridiemPattern = `(am|pm|a\.m\.|p\.m\.)`

var (
	dayPattern = `(` + en.ORDINAL_WORDS_PATTERN + `|\d{1,2})`
	monthName  = `(` + en.MONTH_OFFSET_PATTERN + `)`
)

// 1996-01-25, 2024/01/25, 2024.01.25
func isoDate() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?:\W|^)(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Month != nil {
				return false, nil
			}
			year, _ := strconv.Atoi(m.Captures[0])
			month, _ := strconv.Atoi(m.Captures[1])
			day, _ := strconv.Atoi(m.Captures[2])
			return setDate(c, &year, month, day)
		},
	}
}

// 6/13/2014, 13/6/2014, 13.06.2014, 6-13-14
func numericDate() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?:\W|^)(\d{1,2})([-/.])(\d{1,2})[-/.](\d{4}|\d{2})(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Month != nil {
				return false, nil
			}
			first, _ := strconv.Atoi(m.Captures[0])
			second, _ := strconv.Atoi(m.Captures[2])
			year, _ := strconv.Atoi(m.Captures[3])
			if len(m.Captures[3]) == 2 {
				year += 2000
			}
			// Dotted dates and first components above twelve are day-first,
			// everything else reads the American way.
			month, day := first, second
			if m.Captures[1] == "." || first > 12 {
				month, day = second, first
			}
			return setDate(c, &year, month, day)
		},
	}
}

// January 1 2025, Aug 27th 2025, March 3
func monthDayYear() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\W|^)` + monthName + `\s+` + dayPattern + `(?:\s+(\d{4}))?(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Month != nil {
				return false, nil
			}
			return setNamedDate(c, m.Captures[0], m.Captures[1], m.Captures[2])
		},
	}
}

// 1 September 2025, 3rd of March
func dayMonthYear() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\W|^)` + dayPattern + `\s+(?:of\s+)?` + monthName + `(?:\s+(\d{4}))?(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Month != nil {
				return false, nil
			}
			return setNamedDate(c, m.Captures[1], m.Captures[0], m.Captures[2])
		},
	}
}

// today, tomorrow, yesterday. The offset is kept in whole days on
// Context.Duration and applied to the reference day of the resolved zone.
func casualDay() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\W|^)(today|tomorrow|yesterday)(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Month != nil || c.Duration != 0 {
				return false, nil
			}
			switch strings.ToLower(m.Captures[0]) {
			case "tomorrow":
				c.Duration = 24 * time.Hour
			case "yesterday":
				c.Duration = -24 * time.Hour
			}
			return true, nil
		},
	}
}

// 19:00, 14:30:00, 7:47 PM, 00:00:00.000. A clock directly after a sign
// or a digit is an offset ("+05:30") and is left for the zone.
func clockTime() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:^|[^+\-\d])(\d{1,2}):(\d{2})(?::(\d{2}))?(\.\d+)?(?:\s*` + meridiemPattern + `(?:\W|$))?`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Hour != nil {
				return false, nil
			}
			hour, _ := strconv.Atoi(m.Captures[0])
			minute, _ := strconv.Atoi(m.Captures[1])
			second := 0
			if m.Captures[2] != "" {
				second, _ = strconv.Atoi(m.Captures[2])
			}
			return setClock(c, hour, minute, second, m.Captures[4])
		},
	}
}

// 7pm, 12 am, 5 p.m.
func meridiemHour() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:^|[^+\-\d:.])(\d{1,2})\s*` + meridiemPattern + `(?:\W|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Hour != nil {
				return false, nil
			}
			hour, _ := strconv.Atoi(m.Captures[0])
			return setClock(c, hour, 0, 0, m.Captures[1])
		},
	}
}

func midnight() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\W|^)(midnight)(?:\W|$)`),
		Applier: func(_ *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			if c.Hour != nil {
				return false, nil
			}
			return setClock(c, 0, 0, 0, "")
		},
	}
}

func setNamedDate(c *rules.Context, month, day, year string) (bool, error) {
	mon, ok := en.MONTH_OFFSET[strings.ToLower(month)]
	if !ok {
		return false, nil
	}
	d, ok := en.ORDINAL_WORDS[strings.ToLower(day)]
	if !ok {
		d, _ = strconv.Atoi(day)
	}
	if year == "" {
		return setDate(c, nil, mon, d)
	}
	y, _ := strconv.Atoi(year)
	return setDate(c, &y, mon, d)
}

func setDate(c *rules.Context, year *int, month, day int) (bool, error) {
	if month < 1 || month > 12 {
		return false, fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > 31 {
		return false, fmt.Errorf("day %d out of range", day)
	}
	c.Year, c.Month, c.Day = year, &month, &day
	return true, nil
}

func setClock(c *rules.Context, hour, minute, second int, meridiem string) (bool, error) {
	if minute > 59 || second > 59 {
		return false, fmt.Errorf("time %d:%02d:%02d out of range", hour, minute, second)
	}
	if meridiem == "" {
		if hour > 23 {
			return false, fmt.Errorf("hour %d out of range", hour)
		}
	} else {
		if hour < 1 || hour > 12 {
			return false, fmt.Errorf("hour %d out of range for %s", hour, meridiem)
		}
		pm := strings.HasPrefix(strings.ToLower(meridiem), "p")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
	}
	c.Hour, c.Minute, c.Second = &hour, &minute, &second
	return true, nil
}
