// ABOUTME: Display scales and calendar-aligned floor/ceil helpers
// ABOUTME: Picks a timeline granularity for a visible time span

package daterange

import (
	"fmt"
	"strings"
	"time"
)

// Scale is the display granularity a timeline viewport adopts.
type Scale string

const (
	ScaleSecond        Scale = "second"
	ScaleQuarterMinute Scale = "quarterminute"
	ScaleMinute        Scale = "minute"
	ScaleQuarterHour   Scale = "quarterhour"
	ScaleHour          Scale = "hour"
	ScaleDay           Scale = "day"
	ScaleMonth         Scale = "month"
	ScaleYear          Scale = "year"
	ScaleDecade        Scale = "decade"
)

// Scales lists every scale from finest to coarsest.
var Scales = []Scale{
	ScaleSecond,
	ScaleQuarterMinute,
	ScaleMinute,
	ScaleQuarterHour,
	ScaleHour,
	ScaleDay,
	ScaleMonth,
	ScaleYear,
	ScaleDecade,
}

// ParseScale converts a scale name (case-insensitive) into a Scale.
func ParseScale(s string) (Scale, error) {
	want := Scale(strings.ToLower(strings.TrimSpace(s)))
	for _, sc := range Scales {
		if sc == want {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown scale: %q", s)
}

// Floor returns the start of the scale unit containing t, in t's location.
func Floor(t time.Time, s Scale) time.Time {
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	loc := t.Location()

	switch s {
	case ScaleSecond:
		return time.Date(y, mo, d, h, mi, sec, 0, loc)
	case ScaleQuarterMinute:
		return time.Date(y, mo, d, h, mi, sec-sec%15, 0, loc)
	case ScaleMinute:
		return time.Date(y, mo, d, h, mi, 0, 0, loc)
	case ScaleQuarterHour:
		return time.Date(y, mo, d, h, mi-mi%15, 0, 0, loc)
	case ScaleHour:
		return time.Date(y, mo, d, h, 0, 0, 0, loc)
	case ScaleDay:
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	case ScaleMonth:
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	case ScaleYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	case ScaleDecade:
		return time.Date(y-mod(y, 10), time.January, 1, 0, 0, 0, 0, loc)
	}
	return t
}

// Ceil returns the start of the scale unit following the one containing t.
// A t already on a unit boundary still moves forward one unit, so
// Ceil(Floor(t, Day), Day) is the next midnight.
func Ceil(t time.Time, s Scale) time.Time {
	return Add(Floor(t, s), s, 1)
}

// Add moves t forward by n units of s. Units of a day and above follow the
// calendar, so a day is not always 24 hours across DST changes.
func Add(t time.Time, s Scale, n int) time.Time {
	switch s {
	case ScaleSecond:
		return t.Add(time.Duration(n) * time.Second)
	case ScaleQuarterMinute:
		return t.Add(time.Duration(n) * 15 * time.Second)
	case ScaleMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case ScaleQuarterHour:
		return t.Add(time.Duration(n) * 15 * time.Minute)
	case ScaleHour:
		return t.Add(time.Duration(n) * time.Hour)
	case ScaleDay:
		return t.AddDate(0, 0, n)
	case ScaleMonth:
		return t.AddDate(0, n, 0)
	case ScaleYear:
		return t.AddDate(n, 0, 0)
	case ScaleDecade:
		return t.AddDate(10*n, 0, 0)
	}
	return t
}

// spanThresholds maps the widest visible span still shown at each scale.
var spanThresholds = []struct {
	max   time.Duration
	scale Scale
}{
	{2 * time.Minute, ScaleSecond},
	{10 * time.Minute, ScaleQuarterMinute},
	{2 * time.Hour, ScaleMinute},
	{8 * time.Hour, ScaleQuarterHour},
	{3 * 24 * time.Hour, ScaleHour},
	{90 * 24 * time.Hour, ScaleDay},
	{3 * 365 * 24 * time.Hour, ScaleMonth},
	{40 * 365 * 24 * time.Hour, ScaleYear},
}

// ScaleForSpan picks the display scale for a viewport showing span.
func ScaleForSpan(span time.Duration) Scale {
	if span < 0 {
		span = -span
	}
	for _, th := range spanThresholds {
		if span <= th.max {
			return th.scale
		}
	}
	return ScaleDecade
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
