package entity

import (
	"fmt"
	"math"
	"time"
)

// TravelDuration is the planned length of a trip, in days or hours
type TravelDuration struct {
	Value  float64 `json:"value"`
	Hourly bool    `json:"hourly"`
}

// Days returns the whole-day part, zero for hourly trips
func (d TravelDuration) Days() int {
	if d.Hourly {
		return 0
	}
	return int(d.Value)
}

// Hours returns the value for hourly trips, zero otherwise
func (d TravelDuration) Hours() float64 {
	if d.Hourly {
		return d.Value
	}
	return 0
}

func (d TravelDuration) String() string {
	if d.Hourly {
		return pluralize(d.Value, "hour")
	}
	return pluralize(float64(d.Days()), "day")
}

func pluralize(v float64, unit string) string {
	s := fmt.Sprintf("%g %s", v, unit)
	if v != 1 {
		s += "s"
	}
	return s
}

// PlannedDuration prefers a positive manual value; a fractional manual value
// is a duration in hours. Otherwise the inclusive day span of start and end.
func PlannedDuration(start, end *time.Time, manual float64) TravelDuration {
	if manual > 0 {
		return TravelDuration{Value: manual, Hourly: math.Mod(manual, 1) != 0}
	}
	if start == nil || end == nil || end.Before(*start) {
		return TravelDuration{}
	}
	return TravelDuration{Value: float64(daysBetween(*start, *end) + 1)}
}

// ActualDurationDays counts started days between actual start and end, at least one
func ActualDurationDays(start, end *time.Time) int {
	if start == nil || end == nil || end.Before(*start) {
		return 0
	}
	delta := end.Sub(*start)
	days := int(delta / (24 * time.Hour))
	if delta%(24*time.Hour) > 0 {
		days++
	}
	if days < 1 {
		return 1
	}
	return days
}

func daysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}
