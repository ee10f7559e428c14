package enums

import (
	"fmt"
	"time"
)

// Shift is the working shift a request was raised in.
type Shift string

const (
	ShiftDay   Shift = "Day"
	ShiftNight Shift = "Night"
)

const (
	dayShiftStartHour = 6
	dayShiftEndHour   = 18
)

var validShifts = []Shift{ShiftDay, ShiftNight}

// ShiftAt returns the shift covering t: Day from 06:00 until 18:00, Night otherwise.
func ShiftAt(t time.Time) Shift {
	h := t.Hour()
	if h >= dayShiftStartHour && h < dayShiftEndHour {
		return ShiftDay
	}
	return ShiftNight
}

// String implements fmt.Stringer.
func (s Shift) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Shift.
func (s Shift) IsValid() bool {
	for _, candidate := range validShifts {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShift converts raw input into a Shift.
func ParseShift(value string) (Shift, error) {
	for _, candidate := range validShifts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift %q", value)
}
