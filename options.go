package racechrono

import "time"

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithTimeouts overrides the protocol timing constants. NewMonitor
// fails when reset does not exceed refresh, since the forced-refresh
// grace window must be positive.
func WithTimeouts(init, refresh, reset time.Duration) Option {
	return func(m *Monitor) {
		m.initTimeout = init
		m.refreshTimeout = refresh
		m.resetTimeout = reset
	}
}

// WithTimerFactory replaces the timer the state ladder runs on. This
// exists so tests can drive expiry by hand.
func WithTimerFactory(fn TimerFactory) Option {
	return func(m *Monitor) {
		m.timerFactory = fn
	}
}

// WithErrorFunc sets a callback for transport errors that surface on
// the timer path, where there is no caller to return them to.
func WithErrorFunc(fn func(error)) Option {
	return func(m *Monitor) {
		m.onError = fn
	}
}
