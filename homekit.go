package main

import (
	"time"

	"github.com/brutella/hap/accessory"
	"go.uber.org/zap"
)

// homekitSwitch exposes the countdown as a switch that turns on when the
// countdown reaches zero, so HomeKit automations can react to it.
type homekitSwitch struct {
	acc    *accessory.Switch
	logger *zap.Logger
}

func newHomekitSwitch(name string, logger *zap.Logger) *homekitSwitch {
	a := accessory.NewSwitch(accessory.Info{
		Name: name,
	})

	// Log control through HomeKit
	a.Switch.On.OnValueRemoteUpdate(func(on bool) {
		if on {
			logger.Info("Switching on remotely")
		} else {
			logger.Info("Switching off remotely")
		}
	})

	return &homekitSwitch{acc: a, logger: logger}
}

func (h *homekitSwitch) CountdownStarted(end time.Time) {
	h.logger.Info("Switching off for new countdown", zap.Time("end", end))
	h.acc.Switch.On.SetValue(false)
}

func (h *homekitSwitch) CountdownFinished() {
	h.logger.Info("Switching on via timer")
	h.acc.Switch.On.SetValue(true)
}

func (h *homekitSwitch) On() bool {
	return h.acc.Switch.On.Value()
}
