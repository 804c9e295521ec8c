package recur

import (
	"time"

	"github.com/teambition/rrule-go"

	"lifelist/internal/model"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// ruleOption compiles a frequency to an RRULE anchored at start.
func ruleOption(f model.Frequency, start time.Time) (rrule.ROption, bool) {
	opt := rrule.ROption{Dtstart: start, Interval: 1}
	switch f.Kind {
	case model.Daily:
		opt.Freq = rrule.DAILY
	case model.Weekly:
		opt.Freq = rrule.WEEKLY
	case model.Biweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case model.Weekdays:
		opt.Freq = rrule.DAILY
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case model.Monthly:
		opt.Freq = rrule.MONTHLY
	case model.Annually:
		opt.Freq = rrule.YEARLY
	case model.Floating:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(f.Month)}
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[f.Weekday].Nth(f.Week)}
	default:
		return rrule.ROption{}, false
	}
	return opt, true
}

// NextStart returns the start of the cycle after one starting at start,
// or false when the frequency does not recur.
func NextStart(f model.Frequency, start time.Time) (time.Time, bool) {
	opt, ok := ruleOption(f, start)
	if !ok {
		return time.Time{}, false
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, false
	}
	next := rule.After(start, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// RuleString renders the frequency as an RRULE value anchored at start
// ("FREQ=WEEKLY;INTERVAL=2"), or false when it does not recur.
func RuleString(f model.Frequency, start time.Time) (string, bool) {
	opt, ok := ruleOption(f, start)
	if !ok {
		return "", false
	}
	return opt.RRuleString(), true
}

// nextCycle derives the next occurrence of a recurring event. A present
// end moves by the same number of calendar days as the start.
func nextCycle(ev model.Event) (model.Event, bool) {
	if !ev.Recurs() || ev.IsTodo() {
		return model.Event{}, false
	}
	start, ok := NextStart(ev.Frequency, ev.Start)
	if !ok {
		return model.Event{}, false
	}
	next := ev.Clone()
	next.Start = start
	if ev.HasEnd() {
		days := model.DateOf(ev.Start).DaysUntil(model.DateOf(start))
		next.End = ev.End.AddDate(0, 0, days)
	}
	return next, true
}

// continuation returns the next day of a multi-day occurrence: the start
// moves one day forward, the end stays, and the copy never recurs. The
// end's calendar day is taken in the start's zone.
func continuation(ev model.Event) (model.Event, bool) {
	if ev.IsTodo() || !ev.HasEnd() {
		return model.Event{}, false
	}
	endDay := model.DateOf(ev.End.In(ev.Start.Location()))
	if !endDay.After(model.DateOf(ev.Start)) {
		return model.Event{}, false
	}
	next := ev.Clone()
	next.Start = ev.Start.AddDate(0, 0, 1)
	next.Frequency = model.Frequency{Kind: model.Once}
	return next, true
}
