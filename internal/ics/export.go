package ics

import (
	"math"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"lifelist/internal/model"
	"lifelist/internal/recur"
)

// ProductID identifies exported calendars.
const ProductID = "-//lifelist//agenda//EN"

const (
	propCategories = ical.ComponentProperty("CATEGORIES")
	propPriority   = ical.ComponentProperty("PRIORITY")
)

// Export renders dated events as a VCALENDAR. Recurring events carry an
// RRULE instead of being expanded. Undated items have no place in a
// calendar and are left out.
func Export(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		if ev.IsTodo() {
			continue
		}
		ve := cal.AddEvent(UID(ev))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Name)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}

		if allDay(ev) {
			last := ev.Start
			if ev.HasEnd() {
				last = ev.End
			}
			ve.SetAllDayStartAt(ev.Start)
			// DTEND is exclusive for all-day events.
			ve.SetAllDayEndAt(last.AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(ev.Start)
			if ev.HasEnd() {
				ve.SetEndAt(ev.End)
			}
		}

		if rule, ok := recur.RuleString(ev.Frequency, ev.Start); ok {
			ve.SetProperty(ical.ComponentPropertyRrule, rule)
		}
		ve.SetProperty(propPriority, strconv.Itoa(toICalPriority(ev.Priority)))
		for _, tag := range ev.Tags {
			ve.AddProperty(propCategories, tag)
		}
	}
	return cal.Serialize()
}

// UID derives a stable identifier from the event's name and first start,
// so re-exports update rather than duplicate subscribed entries.
func UID(ev model.Event) string {
	key := ev.Name + "\x00" + ev.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@lifelist"
}

func allDay(ev model.Event) bool {
	midnight := func(t time.Time) bool { return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 }
	return midnight(ev.Start) && (!ev.HasEnd() || midnight(ev.End))
}

// toICalPriority maps 0..10 (10 most important) onto iCalendar's 1..9
// (1 most important).
func toICalPriority(p float64) int {
	return 9 - int(math.Round(p*8/model.MaxPriority))
}

// fromICalPriority is the inverse of toICalPriority. 0 (undefined) maps
// to the middle of the range.
func fromICalPriority(p int) float64 {
	if p < 1 || p > 9 {
		return model.MaxPriority / 2
	}
	return math.Round(float64(9-p)*model.MaxPriority/8*10) / 10
}
