package main

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TickInterval     = 200 * time.Millisecond
	SettingsInterval = time.Second

	tickSubscription     = "countdown"
	settingsSubscription = "settings"
)

// CountdownObserver is told when a run starts and when it finishes.
type CountdownObserver interface {
	CountdownStarted(end time.Time)
	CountdownFinished()
}

// Status is a snapshot of the controller for reporting.
type Status struct {
	State    State
	Text     string
	Seconds  int64
	End      time.Time
	RunID    string
	Config   TimerConfig
	Sink     string
	Watching bool
}

// Controller binds the single CountdownTimer to its host: the scheduler
// driving it, the display it renders to and the settings configuring it.
// Entry points may be called from any goroutine; they are serialized
// through the scheduler.
type Controller struct {
	timer     *CountdownTimer
	clock     Clock
	scheduler Scheduler
	sink      DisplaySink
	settings  SettingsSource
	observers []CountdownObserver
	logger    *zap.Logger

	sinkID     string
	runID      string
	watching   bool
	lastLoaded *Settings
}

func NewController(clock Clock, scheduler Scheduler, sink DisplaySink, settings SettingsSource, logger *zap.Logger) *Controller {
	return &Controller{
		timer:     NewCountdownTimer(),
		clock:     clock,
		scheduler: scheduler,
		sink:      sink,
		settings:  settings,
		logger:    logger,
	}
}

// Observe registers o. It must be called before the controller is used.
func (c *Controller) Observe(o CountdownObserver) {
	c.observers = append(c.observers, o)
}

// Init applies the settings source once and arms the reconfiguration
// check on success.
func (c *Controller) Init() error {
	var err error
	c.scheduler.Do(func() {
		var s Settings
		s, err = c.settings.Load()
		if err != nil {
			c.logger.Warn("Failed to load settings", zap.Error(err))
			return
		}
		c.lastLoaded = &s
		err = c.applySettings(s)
	})
	return err
}

func (c *Controller) OnRunRequested() {
	c.scheduler.Do(c.start)
}

func (c *Controller) OnPostponeRequested() {
	c.scheduler.Do(func() {
		c.timer.Postpone()
		c.logger.Info("Postponed",
			zap.Duration("duration", c.timer.BaseDuration()),
			zap.Stringer("state", c.timer.State()))
	})
}

func (c *Controller) OnResetRequested() {
	c.scheduler.Do(func() {
		c.timer.Reset()
		c.logger.Info("Reset to defaults")
	})
}

// OnSettingsChanged reconfigures the timer. An unparsable duration tears
// down the reconfiguration check until valid settings are supplied again.
func (c *Controller) OnSettingsChanged(s Settings) error {
	var err error
	c.scheduler.Do(func() {
		err = c.applySettings(s)
	})
	return err
}

// OnUnload cancels every subscription.
func (c *Controller) OnUnload() {
	c.scheduler.Do(func() {
		c.scheduler.Cancel(tickSubscription)
		c.scheduler.Cancel(settingsSubscription)
		c.watching = false
		c.logger.Info("Unloaded")
	})
}

func (c *Controller) Status() Status {
	var st Status
	c.scheduler.Do(func() {
		// an idle timer shows what the next run would start from
		var seconds int64
		if c.timer.State() == Idle {
			seconds = int64(c.timer.BaseDuration().Round(time.Second) / time.Second)
		} else {
			seconds = c.timer.RemainingAt(c.clock.Now())
		}
		text, _ := FormatSeconds(seconds, c.timer.Config().Granularity)
		st = Status{
			State:    c.timer.State(),
			Text:     text,
			Seconds:  seconds,
			End:      c.timer.End(),
			RunID:    c.runID,
			Config:   c.timer.Config(),
			Sink:     c.sinkID,
			Watching: c.watching,
		}
	})
	return st
}

func (c *Controller) start() {
	now := c.clock.Now()
	c.timer.Start(now)
	c.runID = uuid.NewString()
	c.logger.Info("Starting countdown",
		zap.String("run", c.runID),
		zap.Duration("duration", c.timer.BaseDuration()),
		zap.Time("end", c.timer.End()))

	c.scheduler.Every(tickSubscription, TickInterval, c.tick)
	for _, o := range c.observers {
		o.CountdownStarted(c.timer.End())
	}
	c.tick()
}

func (c *Controller) tick() {
	res := c.timer.Tick(c.clock.Now())
	c.render(res.Text)
	if !res.Finished {
		return
	}
	c.scheduler.Cancel(tickSubscription)
	c.logger.Info("Countdown finished", zap.String("run", c.runID))
	for _, o := range c.observers {
		o.CountdownFinished()
	}
}

func (c *Controller) render(text string) {
	if c.sinkID == "" || c.sink == nil {
		return
	}
	c.sink.SetText(c.sinkID, text)
}

func (c *Controller) applySettings(s Settings) error {
	cfg := s.TimerConfig(c.logger)
	if err := c.timer.Configure(cfg, s.Duration); err != nil {
		if errors.Is(err, ErrInvalidDurationFormat) {
			c.logger.Warn("Error parsing initial time", zap.Error(err))
			c.scheduler.Cancel(settingsSubscription)
			c.watching = false
		}
		return err
	}
	c.sinkID = s.Source
	c.logger.Info("Configured",
		zap.String("sink", c.sinkID),
		zap.Int("increment", cfg.Increment),
		zap.Stringer("unit", cfg.IncrementUnit),
		zap.Stringer("format", cfg.Granularity),
		zap.Duration("duration", c.timer.BaseDuration()))

	if !c.watching && !isStatic(c.settings) {
		c.scheduler.Every(settingsSubscription, SettingsInterval, c.reload)
		c.watching = true
	}
	return nil
}

// reload applies the settings source when it changed since the last load
func (c *Controller) reload() {
	s, err := c.settings.Load()
	if err != nil {
		c.logger.Warn("Failed to reload settings", zap.Error(err))
		return
	}
	if c.lastLoaded != nil && *c.lastLoaded == s {
		return
	}
	c.lastLoaded = &s
	// duration errors are logged and tear down the watch in applySettings
	if err := c.applySettings(s); err != nil && !errors.Is(err, ErrInvalidDurationFormat) {
		c.logger.Warn("Failed to apply reloaded settings", zap.Error(err))
	}
}
