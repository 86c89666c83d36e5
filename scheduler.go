package main

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Scheduler invokes callbacks periodically. Callbacks and Do bodies never
// run concurrently with each other.
type Scheduler interface {
	// Every replaces any subscription registered under id.
	Every(id string, interval time.Duration, fn func())
	// Cancel is a no-op for unknown ids and may be called from a callback.
	Cancel(id string)
	// Do runs fn serialized with the callbacks and returns when it is done.
	// It must not be called from a callback.
	Do(fn func())
}

type subscription struct {
	ticker *time.Ticker
	done   chan struct{}
}

// tickerScheduler runs one goroutine per subscription and serializes all
// callbacks on a single mutex.
type tickerScheduler struct {
	run sync.Mutex

	mu      sync.Mutex
	subs    map[string]*subscription
	stopped bool
	wg      sync.WaitGroup

	logger *zap.Logger
}

func NewTickerScheduler(logger *zap.Logger) *tickerScheduler {
	return &tickerScheduler{
		subs:   make(map[string]*subscription),
		logger: logger,
	}
}

func (s *tickerScheduler) Every(id string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.cancelLocked(id)

	sub := &subscription{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.subs[id] = sub
	s.wg.Add(1)
	go s.loop(id, sub, fn)
	s.logger.Debug("Subscribed", zap.String("id", id), zap.Duration("interval", interval))
}

func (s *tickerScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

func (s *tickerScheduler) cancelLocked(id string) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	sub.ticker.Stop()
	close(sub.done)
	delete(s.subs, id)
	s.logger.Debug("Cancelled", zap.String("id", id))
}

func (s *tickerScheduler) active(id string, sub *subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id] == sub
}

func (s *tickerScheduler) loop(id string, sub *subscription, fn func()) {
	defer s.wg.Done()
	for {
		select {
		case <-sub.ticker.C:
			s.run.Lock()
			// The subscription may have been replaced while waiting for the lock
			if s.active(id, sub) {
				s.invoke(id, fn)
			}
			s.run.Unlock()
		case <-sub.done:
			return
		}
	}
}

func (s *tickerScheduler) Do(fn func()) {
	s.run.Lock()
	defer s.run.Unlock()
	s.invoke("do", fn)
}

func (s *tickerScheduler) invoke(id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Callback panicked", zap.String("id", id), zap.Any("panic", r))
		}
	}()
	fn()
}

// Stop cancels all subscriptions and waits for their goroutines. It must
// not be called from a callback.
func (s *tickerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id := range s.subs {
		s.cancelLocked(id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
