package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidDurationFormat = errors.New("invalid duration format")
	ErrInvalidIncrementUnit  = errors.New("invalid increment unit")
)

// IncrementUnit scales the amount added by Postpone.
type IncrementUnit int

const (
	Seconds IncrementUnit = iota + 1
	Minutes
	Hours
)

// Scale returns the duration of one unit. Unknown units scale as Minutes.
func (u IncrementUnit) Scale() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Hours:
		return time.Hour
	default:
		return time.Minute
	}
}

func (u IncrementUnit) Valid() bool {
	return u >= Seconds && u <= Hours
}

func (u IncrementUnit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	default:
		return fmt.Sprintf("IncrementUnit(%d)", int(u))
	}
}

func ParseIncrementUnit(s string) (IncrementUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seconds", "s", "1":
		return Seconds, nil
	case "minutes", "m", "2":
		return Minutes, nil
	case "hours", "h", "3":
		return Hours, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidIncrementUnit, s)
}

// TimerConfig seeds a run.
type TimerConfig struct {
	Increment       int
	IncrementUnit   IncrementUnit
	Granularity     Granularity
	InitialDuration time.Duration
}

func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		Increment:     10,
		IncrementUnit: Minutes,
		Granularity:   SecondsPrecision,
	}
}

// State of a CountdownTimer.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// TickResult is the render instruction produced by a tick.
type TickResult struct {
	Text     string
	Finished bool
}

// CountdownTimer counts down from startAt+baseDuration. It is not safe for
// concurrent use; callers serialize access through the Scheduler.
type CountdownTimer struct {
	startAt      time.Time
	baseDuration time.Duration
	remaining    int64
	config       TimerConfig
	state        State
}

func NewCountdownTimer() *CountdownTimer {
	return &CountdownTimer{config: DefaultTimerConfig()}
}

// Start begins a run at now, counting down whatever duration is
// currently configured, postponements included.
func (t *CountdownTimer) Start(now time.Time) {
	t.startAt = now
	t.state = Running
}

// Tick computes the remaining time at now. Once the deadline has passed it
// reports zero and Finished. Tick does not consult the state, so a timer
// reset while its ticks are still delivered finishes on the next tick.
func (t *CountdownTimer) Tick(now time.Time) TickResult {
	res, remaining := t.evaluate(now)
	t.remaining = remaining
	if res.Finished {
		t.state = Finished
	} else {
		t.state = Running
	}
	return res
}

// RemainingAt returns the seconds left at now without changing state.
func (t *CountdownTimer) RemainingAt(now time.Time) int64 {
	_, remaining := t.evaluate(now)
	return remaining
}

func (t *CountdownTimer) evaluate(now time.Time) (TickResult, int64) {
	diff := t.startAt.Add(t.baseDuration).Sub(now)
	if diff <= 0 {
		return TickResult{Text: t.format(0), Finished: true}, 0
	}
	remaining := int64(math.Round(diff.Seconds()))
	return TickResult{Text: t.format(remaining)}, remaining
}

func (t *CountdownTimer) format(seconds int64) string {
	// FormatSeconds falls back to HH:MM:SS on an invalid granularity
	text, _ := FormatSeconds(seconds, t.config.Granularity)
	return text
}

// Postpone extends the deadline by one increment. It applies in every
// state: a running countdown is extended in place, an idle one starts
// longer next time.
func (t *CountdownTimer) Postpone() {
	t.baseDuration += time.Duration(t.config.Increment) * t.config.IncrementUnit.Scale()
}

// Reset restores the default config and zeroes the duration. startAt is
// left alone.
func (t *CountdownTimer) Reset() {
	t.config = DefaultTimerConfig()
	t.baseDuration = 0
	t.remaining = 0
	t.state = Idle
}

// Configure replaces the config and sets the duration parsed from
// rawDuration ("HH:MM"). On a parse error nothing is changed.
func (t *CountdownTimer) Configure(cfg TimerConfig, rawDuration string) error {
	d, err := ParseInitialDuration(rawDuration)
	if err != nil {
		return err
	}
	cfg.InitialDuration = d
	t.config = cfg
	t.baseDuration = d
	return nil
}

func (t *CountdownTimer) State() State {
	return t.state
}

func (t *CountdownTimer) Config() TimerConfig {
	return t.config
}

func (t *CountdownTimer) BaseDuration() time.Duration {
	return t.baseDuration
}

// End returns the deadline, or the zero time if the timer was never
// started.
func (t *CountdownTimer) End() time.Time {
	if t.startAt.IsZero() {
		return time.Time{}
	}
	return t.startAt.Add(t.baseDuration)
}

// Remaining returns the seconds computed by the last Tick.
func (t *CountdownTimer) Remaining() int64 {
	return t.remaining
}

// ParseInitialDuration parses an "HH:MM" clock reading (hours 0-23,
// minutes 00-59) into a duration.
func ParseInitialDuration(raw string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, raw)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
