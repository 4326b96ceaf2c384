package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDatePattern = regexp.MustCompile(`^([+-]?)\s*(\d+)\s*(hour|day|week|month|year)s?$`)

// ParseDateExpression resolves a date expression against now. Accepted forms are
// "now", "today", "tomorrow", "yesterday", "YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS"
// and relative offsets such as "-1 month" or "+2 weeks". Absolute dates are
// interpreted in now's location.
func ParseDateExpression(expr string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	switch s {
	case "now":
		return now, nil
	case "today":
		return startOfDay(now), nil
	case "tomorrow":
		return startOfDay(now).AddDate(0, 0, 1), nil
	case "yesterday":
		return startOfDay(now).AddDate(0, 0, -1), nil
	}
	for _, layout := range []string{DateTimeLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	m := relativeDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized date expression %q", expr)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date expression %q: %w", expr, err)
	}
	if m[1] == "-" {
		n = -n
	}
	switch m[3] {
	case "hour":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "day":
		return now.AddDate(0, 0, n), nil
	case "week":
		return now.AddDate(0, 0, 7*n), nil
	case "month":
		return now.AddDate(0, n, 0), nil
	default:
		return now.AddDate(n, 0, 0), nil
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
