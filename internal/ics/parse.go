// Package ics converts between events and iCalendar data.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "lifelist/internal/log"
	"lifelist/internal/model"
)

// Parse reads the VEVENTs of an iCalendar payload as events. Floating
// and date-only values are placed in loc. Components that cannot be
// represented (an RRULE outside the supported frequencies, a missing
// DTSTART) are logged and skipped.
func Parse(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "uid", propValue(comp, ical.ComponentPropertyUniqueId), "error", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	out := model.Event{
		Name:      textValue(ve, ical.ComponentPropertySummary),
		Location:  textValue(ve, ical.ComponentPropertyLocation),
		Priority:  model.MaxPriority / 2,
		Frequency: model.Frequency{Kind: model.Once},
		Tags:      []string{},
	}
	if out.Name == "" {
		return out, errors.New("missing SUMMARY")
	}

	if v := propValue(ve, propPriority); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			out.Priority = fromICalPriority(n)
		}
	}
	for _, p := range ve.GetProperties(propCategories) {
		for _, tag := range strings.Split(p.Value, ",") {
			tag = textUnescaper.Replace(tag)
			if tag = strings.TrimSpace(tag); tag != "" {
				out.Tags = append(out.Tags, tag)
			}
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}

	if isDateValue(dtStart) {
		start, err := parseICSTime(dtStart.Value, loc)
		if err != nil {
			return out, fmt.Errorf("DTSTART: %w", err)
		}
		out.Start = start
		// DTEND of an all-day event is the day after the last day.
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil && dtEnd.Value != "" {
			end, err := parseICSTime(dtEnd.Value, loc)
			if err != nil {
				return out, fmt.Errorf("DTEND: %w", err)
			}
			if last := end.AddDate(0, 0, -1); last.After(start) {
				out.End = last
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("DTSTART: %w", err)
		}
		out.Start = inZone(start, dtStart, loc)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := ve.GetEndAt(); err == nil {
				out.End = inZone(end, dtEnd, loc)
			}
		}
	}

	if raw := propValue(ve, ical.ComponentPropertyRrule); raw != "" {
		f, err := frequencyFromRule(raw, out.Start)
		if err != nil {
			return out, err
		}
		out.Frequency = f
	}

	out.Normalize()
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n")

// textValue is propValue for TEXT properties, with escapes removed.
func textValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	return textUnescaper.Replace(propValue(ve, prop))
}

// isDateValue reports VALUE=DATE, or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// inZone keeps a TZID or UTC instant as parsed and moves floating times
// into loc at the same wall clock.
func inZone(t time.Time, p *ical.IANAProperty, loc *time.Location) time.Time {
	if _, ok := p.ICalParameters["TZID"]; ok || strings.HasSuffix(p.Value, "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// parseICSTime parses a DATE or floating DATE-TIME value in loc, and a
// UTC DATE-TIME as UTC.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

// frequencyFromRule maps an RRULE onto the supported frequencies. Rules
// with COUNT or UNTIL, weekly rules on a day other than start's, and
// other shapes are rejected.
func frequencyFromRule(raw string, start time.Time) (model.Frequency, error) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return model.Frequency{}, fmt.Errorf("RRULE %q: %w", raw, err)
	}
	unsupported := fmt.Errorf("RRULE %q: not a supported frequency", raw)
	if opt.Count != 0 || !opt.Until.IsZero() {
		return model.Frequency{}, unsupported
	}
	interval := max(opt.Interval, 1)

	switch {
	case opt.Freq == rrule.DAILY && interval == 1 && len(opt.Byweekday) == 0:
		return model.Frequency{Kind: model.Daily}, nil
	case (opt.Freq == rrule.DAILY || opt.Freq == rrule.WEEKLY) && interval == 1 && isWorkWeek(opt.Byweekday):
		return model.Frequency{Kind: model.Weekdays}, nil
	case opt.Freq == rrule.WEEKLY && onStartDay(opt.Byweekday, start) && interval == 1:
		return model.Frequency{Kind: model.Weekly}, nil
	case opt.Freq == rrule.WEEKLY && onStartDay(opt.Byweekday, start) && interval == 2:
		return model.Frequency{Kind: model.Biweekly}, nil
	case opt.Freq == rrule.MONTHLY && interval == 1 && len(opt.Byweekday) == 0:
		return model.Frequency{Kind: model.Monthly}, nil
	case opt.Freq == rrule.YEARLY && interval == 1 && len(opt.Byweekday) == 0:
		return model.Frequency{Kind: model.Annually}, nil
	case opt.Freq == rrule.YEARLY && interval == 1 && len(opt.Bymonth) == 1 && len(opt.Byweekday) == 1:
		wd := opt.Byweekday[0]
		week := wd.N()
		if week == 0 || week < model.LastWeek || week > 4 {
			return model.Frequency{}, unsupported
		}
		return model.Frequency{
			Kind:    model.Floating,
			Weekday: goWeekday(wd),
			Week:    week,
			Month:   time.Month(opt.Bymonth[0]),
		}, nil
	}
	return model.Frequency{}, unsupported
}

// onStartDay reports an empty BYDAY, or a single plain weekday equal to
// the weekday of start.
func onStartDay(days []rrule.Weekday, start time.Time) bool {
	switch len(days) {
	case 0:
		return true
	case 1:
		return days[0].N() == 0 && goWeekday(days[0]) == start.Weekday()
	}
	return false
}

// goWeekday converts rrule's Monday-first weekday.
func goWeekday(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

func isWorkWeek(days []rrule.Weekday) bool {
	if len(days) != 5 {
		return false
	}
	seen := 0
	for _, d := range days {
		if d.N() != 0 || d.Day() > 4 {
			return false
		}
		seen |= 1 << d.Day()
	}
	return seen == 0b11111
}
