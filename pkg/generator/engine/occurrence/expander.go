package occurrence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// Rule is a recurrence rule ending after Count instances, the defining record
// included.
type Rule struct {
	Type     model.RecurrenceType
	Count    int
	Interval int
}

// RuleFor returns the generator's rule for t: daily x5, weekly x8, monthly x10,
// yearly x2, every period.
func RuleFor(t model.RecurrenceType) (Rule, error) {
	counts := map[model.RecurrenceType]int{
		model.RecurrenceDaily:   5,
		model.RecurrenceWeekly:  8,
		model.RecurrenceMonthly: 10,
		model.RecurrenceYearly:  2,
	}
	count, ok := counts[t]
	if !ok {
		return Rule{}, fmt.Errorf("no recurrence rule for type '%s'", t)
	}
	return Rule{Type: t, Count: count, Interval: 1}, nil
}

// Descriptor is the value stored under the recurrence metadata key.
func (r Rule) Descriptor(start time.Time) string {
	desc := fmt.Sprintf("type=%s;interval=%d;end-type=After;end-count=%d;same-time=yes", r.Type, r.Interval, r.Count)
	switch r.Type {
	case model.RecurrenceWeekly:
		desc += ";week-day=" + strconv.Itoa(int(start.Weekday()))
	case model.RecurrenceYearly:
		desc += ";year-month=" + strconv.Itoa(int(start.Month())) + ";same-day=yes"
	}
	return desc
}

// shift moves t by n periods of the rule, keeping its wall-clock time. Monthly
// and yearly shifts clamp the day to the end of the target month.
func (r Rule) shift(t time.Time, n int) time.Time {
	step := n * r.Interval
	y, m, d := t.Date()
	switch r.Type {
	case model.RecurrenceDaily:
		d += step
	case model.RecurrenceWeekly:
		d += 7 * step
	case model.RecurrenceMonthly:
		m += time.Month(step)
		d = clampDay(y, m, d)
	case model.RecurrenceYearly:
		y += step
		d = clampDay(y, m, d)
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func clampDay(y int, m time.Month, d int) int {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d > last {
		return last
	}
	return d
}

func civilDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Expand returns the occurrences after the defining instance [start, end] in
// start's location. Each occurrence keeps the wall-clock start and end times,
// so its duration is computed in the event's zone and may differ across
// daylight-saving changes.
func Expand(start, end time.Time, rule Rule) []model.Occurrence {
	if rule.Count <= 1 {
		return nil
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}
	end = end.In(start.Location())
	days := civilDays(start, end)

	out := make([]model.Occurrence, 0, rule.Count-1)
	for i := 1; i < rule.Count; i++ {
		s := rule.shift(start, i)
		y, m, d := s.Date()
		e := time.Date(y, m, d+days, end.Hour(), end.Minute(), end.Second(), end.Nanosecond(), s.Location())
		out = append(out, model.Occurrence{Start: s, Duration: e.Sub(s)})
	}
	return out
}
