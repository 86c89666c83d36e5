package main

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidGranularity = errors.New("invalid granularity")

// Granularity selects how much of a duration is rendered.
type Granularity int

const (
	// SecondsPrecision renders HH:MM:SS
	SecondsPrecision Granularity = iota + 1
	// MinutesPrecision renders HH:MM
	MinutesPrecision
	// HoursOnly renders HH
	HoursOnly
)

func (g Granularity) Valid() bool {
	return g >= SecondsPrecision && g <= HoursOnly
}

func (g Granularity) String() string {
	switch g {
	case SecondsPrecision:
		return "HH:MM:SS"
	case MinutesPrecision:
		return "HH:MM"
	case HoursOnly:
		return "HH"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity accepts the layout ("HH:MM"), the unit name ("minutes")
// or the numeric value ("2").
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hh:mm:ss", "seconds", "1":
		return SecondsPrecision, nil
	case "hh:mm", "minutes", "2":
		return MinutesPrecision, nil
	case "hh", "hours", "3":
		return HoursOnly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// FormatSeconds renders a non-negative number of seconds. Hours are not
// clamped and grow past two digits for durations of 100 hours or more.
//
// An invalid granularity still yields the HH:MM:SS rendering so that a
// caller in a tick loop can log the error and keep displaying something.
func FormatSeconds(totalSeconds int64, g Granularity) (string, error) {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	switch g {
	case SecondsPrecision:
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), nil
	case MinutesPrecision:
		return fmt.Sprintf("%02d:%02d", hours, minutes), nil
	case HoursOnly:
		return fmt.Sprintf("%02d", hours), nil
	default:
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
			fmt.Errorf("%w: %d", ErrInvalidGranularity, int(g))
	}
}
