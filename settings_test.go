package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSettingsLoad(t *testing.T) {
	path := writeSettings(t, `
source: countdown
increment: 5
increment_unit: seconds
timer_format: "HH:MM"
duration: "01:30"
`)
	s, err := NewFileSettings(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Source:        "countdown",
		Increment:     5,
		IncrementUnit: "seconds",
		TimerFormat:   "HH:MM",
		Duration:      "01:30",
	}, s)
}

func TestFileSettingsDefaults(t *testing.T) {
	path := writeSettings(t, "source: lower-third\n")
	s, err := NewFileSettings(path).Load()
	require.NoError(t, err)

	expected := DefaultSettings()
	expected.Source = "lower-third"
	assert.Equal(t, expected, s)
}

func TestFileSettingsErrors(t *testing.T) {
	_, err := NewFileSettings(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeSettings(t, "increment: [1, 2\n")
	_, err = NewFileSettings(path).Load()
	assert.Error(t, err)
}

func TestStaticSettings(t *testing.T) {
	s, err := staticSettings(DefaultSettings()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettingsTimerConfig(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := Settings{Increment: 15, IncrementUnit: "hours", TimerFormat: "HH", Duration: "00:00"}

	cfg := s.TimerConfig(zap.New(core))
	assert.Equal(t, TimerConfig{Increment: 15, IncrementUnit: Hours, Granularity: HoursOnly}, cfg)
	assert.Equal(t, 0, logs.Len())
}

func TestSettingsTimerConfigFallbacks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := Settings{Increment: -3, IncrementUnit: "weeks", TimerFormat: "SS"}

	cfg := s.TimerConfig(zap.New(core))
	assert.Equal(t, DefaultTimerConfig(), cfg)
	assert.Equal(t, 3, logs.Len())
}

func TestSettingsTimerConfigClampsIncrement(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := DefaultSettings()
	s.Increment = 3_000_000
	s.IncrementUnit = "hours"

	cfg := s.TimerConfig(zap.New(core))
	assert.Equal(t, MaxIncrement, cfg.Increment)
	assert.Equal(t, 1, logs.FilterMessage("Increment too large, clamping").Len())

	timer := NewCountdownTimer()
	require.NoError(t, timer.Configure(cfg, "00:00"))
	timer.Start(t0)
	timer.Postpone()
	assert.Equal(t, 60*time.Hour, timer.BaseDuration())
	assert.False(t, timer.Tick(t0).Finished, "a large increment must not wrap the deadline")
}

func TestDefaultSettingsMatchDefaultConfig(t *testing.T) {
	core, _ := observer.New(zapcore.WarnLevel)
	cfg := DefaultSettings().TimerConfig(zap.New(core))
	assert.Equal(t, DefaultTimerConfig(), cfg)

	d, err := ParseInitialDuration(DefaultSettings().Duration)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, d)
}
