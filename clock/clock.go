/*
Package clock provides the decision time of a context: a timestamp and the
UTC offset it should be read in, from which the time properties of a
context are derived.
*/
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

/*
InvalidTimeError is returned when a Time cannot be built from the given
timestamp and timezone, or when a Time is needed to rebuild a context and
none was given.
*/
type InvalidTimeError struct {
	Reason string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time: %s", e.Reason)
}

// Time is an instant and the UTC offset it is observed at.
type Time struct {
	// Timestamp in seconds since the unix epoch
	Timestamp int64
	// Timezone as "+HH:MM"
	Timezone string

	offset int
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})?$`)

var abbreviations = map[string]string{
	"UTC":  "+00:00",
	"GMT":  "+00:00",
	"WET":  "+00:00",
	"WEST": "+01:00",
	"BST":  "+01:00",
	"IST":  "+01:00",
	"CET":  "+01:00",
	"CEST": "+02:00",
	"EET":  "+02:00",
	"EEST": "+03:00",
	"MSK":  "+03:00",
	"MSD":  "+04:00",
	"AST":  "-04:00",
	"ADT":  "-03:00",
	"EST":  "-05:00",
	"EDT":  "-04:00",
	"CST":  "-06:00",
	"CDT":  "-05:00",
	"MST":  "-07:00",
	"MDT":  "-06:00",
	"PST":  "-08:00",
	"PDT":  "-07:00",
	"AKST": "-09:00",
	"AKDT": "-08:00",
	"HST":  "-10:00",
	"AWST": "+08:00",
	"ACST": "+09:30",
	"ACDT": "+10:30",
	"AEST": "+10:00",
	"AEDT": "+11:00",
}

/*
New takes a unix timestamp in seconds and a timezone and returns the
corresponding Time. The timezone can be given as an UTC offset ("+01:00",
"+0100", "+01", "Z") or as an abbreviation such as "CET" or "PST". An
empty timezone stands for UTC.
*/
func New(timestamp int64, timezone string) (Time, error) {
	offset, err := ParseOffset(timezone)
	if err != nil {
		return Time{}, err
	}
	return fromOffset(timestamp, offset), nil
}

/*
FromMinutes takes a unix timestamp in seconds and an UTC offset in minutes
and returns the corresponding Time.
*/
func FromMinutes(timestamp int64, minutes int) (Time, error) {
	if minutes < -14*60 || minutes > 14*60 {
		return Time{}, &InvalidTimeError{Reason: fmt.Sprintf("UTC offset of %d minutes is out of range", minutes)}
	}
	return fromOffset(timestamp, minutes*60), nil
}

// FromTime returns the Time for t observed at t's own UTC offset.
func FromTime(t time.Time) Time {
	_, offset := t.Zone()
	return fromOffset(t.Unix(), offset)
}

/*
Parse takes an RFC 3339 date such as "2017-03-20T09:22:54+01:00" and
returns the corresponding Time.
*/
func Parse(s string) (Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Time{}, &InvalidTimeError{Reason: err.Error()}
	}
	return FromTime(t), nil
}

func fromOffset(timestamp int64, offset int) Time {
	return Time{Timestamp: timestamp, Timezone: formatOffset(offset), offset: offset}
}

/*
ParseOffset takes a timezone and returns its offset to UTC in seconds, or
an *InvalidTimeError if it is not a valid timezone.
*/
func ParseOffset(timezone string) (int, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" || tz == "Z" || tz == "z" {
		return 0, nil
	}
	if o, ok := abbreviations[strings.ToUpper(tz)]; ok {
		tz = o
	}
	m := offsetPattern.FindStringSubmatch(tz)
	if m == nil {
		return 0, &InvalidTimeError{Reason: fmt.Sprintf("%q is not a valid timezone", timezone)}
	}
	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if hours > 14 || minutes > 59 {
		return 0, &InvalidTimeError{Reason: fmt.Sprintf("%q is not a valid timezone", timezone)}
	}
	offset := hours*3600 + minutes*60
	if m[1] == "-" {
		offset = -offset
	}
	return offset, nil
}

func formatOffset(offset int) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, (offset/60)%60)
}

// Time returns t as a time.Time in its own timezone.
func (t Time) Time() time.Time {
	return time.Unix(t.Timestamp, 0).In(time.FixedZone(t.Timezone, t.offset))
}

// TimeOfDay returns the fractional hour of t in [0, 24).
func (t Time) TimeOfDay() float64 {
	tt := t.Time()
	return float64(tt.Hour()) + float64(tt.Minute())/60 + float64(tt.Second())/3600
}

// DayOfWeek returns the day of the week of t, Monday being 0.
func (t Time) DayOfWeek() int {
	return (int(t.Time().Weekday()) + 6) % 7
}

// DayOfMonth returns the day of the month of t in [1, 31].
func (t Time) DayOfMonth() int {
	return t.Time().Day()
}

// MonthOfYear returns the month of t in [1, 12].
func (t Time) MonthOfYear() int {
	return int(t.Time().Month())
}

/*
Value takes a property type and returns the value t gives to properties
of that type, and whether the type is derived from time at all.
*/
func (t Time) Value(typ property.Type) (interface{}, bool) {
	switch typ {
	case property.TimeOfDay:
		return t.TimeOfDay(), true
	case property.DayOfWeek:
		return float64(t.DayOfWeek()), true
	case property.DayOfMonth:
		return float64(t.DayOfMonth()), true
	case property.MonthOfYear:
		return float64(t.MonthOfYear()), true
	case property.Timezone:
		return t.Timezone, true
	}
	return nil, false
}

func (t Time) String() string {
	return t.Time().Format(time.RFC3339)
}
