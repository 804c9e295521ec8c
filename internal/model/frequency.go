package model

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FrequencyKind is the closed set of supported recurrence kinds.
type FrequencyKind string

const (
	Once     FrequencyKind = "once"
	Daily    FrequencyKind = "daily"
	Weekly   FrequencyKind = "weekly"
	Biweekly FrequencyKind = "biweekly"
	Weekdays FrequencyKind = "weekdays"
	Monthly  FrequencyKind = "monthly"
	Annually FrequencyKind = "annually"
	// Floating recurs yearly on the nth weekday of a month, e.g. the
	// first Monday of September.
	Floating FrequencyKind = "floating"
)

var frequencyKinds = []FrequencyKind{Once, Daily, Weekly, Biweekly, Weekdays, Monthly, Annually, Floating}

// LastWeek selects the last matching weekday of the month.
const LastWeek = -1

var weekNames = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"last":   LastWeek,
}

// Frequency describes how an event repeats. Weekday, Week and Month are
// only meaningful for Floating.
type Frequency struct {
	Kind    FrequencyKind
	Weekday time.Weekday
	Week    int
	Month   time.Month
}

// ParseFrequencyKind resolves a kind name, case-insensitively.
func ParseFrequencyKind(s string) (FrequencyKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range frequencyKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func (f Frequency) String() string {
	if f.Kind != Floating {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s %s of %s", weekName(f.Week), strings.ToLower(f.Weekday.String()), strings.ToLower(f.Month.String()))
}

type floatingFields struct {
	Kind    string `yaml:"kind"`
	Weekday string `yaml:"weekday,omitempty"`
	Week    string `yaml:"week,omitempty"`
	Month   string `yaml:"month,omitempty"`
}

// UnmarshalYAML accepts either a bare kind ("weekly") or the object form
// ({kind: floating, weekday: monday, week: first, month: september}).
func (f *Frequency) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		kind, ok := ParseFrequencyKind(value.Value)
		if !ok {
			return &ValidationError{Field: "frequency", Value: value.Value, Message: "must be one of " + kindList()}
		}
		if kind == Floating {
			return &ValidationError{Field: "frequency", Value: value.Value, Message: "floating requires weekday, week and month"}
		}
		*f = Frequency{Kind: kind}
		return nil
	case yaml.MappingNode:
		var raw floatingFields
		if err := value.Decode(&raw); err != nil {
			return &ValidationError{Field: "frequency", Message: err.Error()}
		}
		return f.fromFields(raw)
	default:
		return &ValidationError{Field: "frequency", Message: "must be a string or an object with a kind"}
	}
}

func (f *Frequency) fromFields(raw floatingFields) error {
	kind, ok := ParseFrequencyKind(raw.Kind)
	if !ok {
		return &ValidationError{Field: "frequency.kind", Value: raw.Kind, Message: "must be one of " + kindList()}
	}
	if kind != Floating {
		*f = Frequency{Kind: kind}
		return nil
	}

	weekday, ok := parseWeekday(raw.Weekday)
	if !ok {
		return &ValidationError{Field: "frequency.weekday", Value: raw.Weekday, Message: "must be a day of the week"}
	}
	week, ok := weekNames[strings.ToLower(strings.TrimSpace(raw.Week))]
	if !ok {
		return &ValidationError{Field: "frequency.week", Value: raw.Week, Message: "must be first, second, third, fourth or last"}
	}
	month, ok := parseMonth(raw.Month)
	if !ok {
		return &ValidationError{Field: "frequency.month", Value: raw.Month, Message: "must be a month name"}
	}
	*f = Frequency{Kind: Floating, Weekday: weekday, Week: week, Month: month}
	return nil
}

// MarshalYAML writes the bare kind, or the object form for Floating.
func (f Frequency) MarshalYAML() (any, error) {
	if f.Kind != Floating {
		if f.Kind == "" {
			return string(Once), nil
		}
		return string(f.Kind), nil
	}
	return floatingFields{
		Kind:    string(Floating),
		Weekday: strings.ToLower(f.Weekday.String()),
		Week:    weekName(f.Week),
		Month:   strings.ToLower(f.Month.String()),
	}, nil
}

func weekName(w int) string {
	for name, n := range weekNames {
		if n == w {
			return name
		}
	}
	return fmt.Sprintf("week %d", w)
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, true
		}
	}
	return 0, false
}

func parseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == s {
			return m, true
		}
	}
	return 0, false
}

func kindList() string {
	names := make([]string, len(frequencyKinds))
	for i, k := range frequencyKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
