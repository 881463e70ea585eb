package racechrono

import (
	"context"
	"io"
	"iter"
	"math"
	"sync"
	"time"

	"github.com/kellegous/poop"
)

// Transport is the device side of one attribute channel. Write must
// complete or queue the transfer before returning; the Monitor issues
// its registration frames synchronously and in order through it.
// Connections reports the number of connected peers.
type Transport interface {
	io.Writer
	Connections() int
}

// Monitor drives the equation registration, refresh and reset state
// machine against the peer's config channel. Peer writes are fed back
// in through HandleAck and HandleValues by the transport binding.
//
// The Go runtime is preemptive, so unlike the cooperative firmware
// model the monitor guards its state and registry with a mutex.
type Monitor struct {
	tx Transport

	mu       sync.Mutex
	state    State
	registry Registry
	timer    Timer
	timerGen uint64
	updates  *updateHub

	initTimeout    time.Duration
	refreshTimeout time.Duration
	resetTimeout   time.Duration
	timerFactory   TimerFactory
	onError        func(error)
}

// NewMonitor builds a monitor writing registration and control frames
// through tx. The monitor stays in StateUninitialized until Start.
func NewMonitor(tx Transport, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		tx:             tx,
		state:          StateUninitialized,
		updates:        newUpdateHub(),
		initTimeout:    InitTimeout,
		refreshTimeout: RefreshTimeout,
		resetTimeout:   ResetTimeout,
		timerFactory:   newAfterFuncTimer,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.resetTimeout <= m.refreshTimeout {
		return nil, poop.Newf(
			"reset timeout (%s) must exceed refresh timeout (%s)",
			m.resetTimeout,
			m.refreshTimeout,
		)
	}

	m.timer = m.timerFactory(m.expire)
	return m, nil
}

// Add registers an equation to monitor. Equations may be added before
// or after Start; they are never removed. The returned equation is
// only mutated by the decode path and by Reset.
func (m *Monitor) Add(expr string, scale float32) (*Equation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq, err := m.registry.Add(expr, scale)
	if err != nil {
		return nil, poop.Chain(err)
	}
	return eq, nil
}

// Start moves the monitor to StateStarted and begins registration.
// The transport binding calls this once its channels are live.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateStarted
	return m.configureEquations()
}

// ConfigureEquations registers every equation with the peer. With no
// peer connected it just re-arms the retry timer; registration is
// deferred until one appears. Registration alone does not mark the
// state Active, the peer still has to acknowledge or send values.
func (m *Monitor) ConfigureEquations() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configureEquations()
}

func (m *Monitor) configureEquations() error {
	if m.tx.Connections() == 0 {
		m.armTimer(m.initTimeout)
		return nil
	}

	for i := 0; i < m.registry.Len(); i++ {
		if err := writeEquationConfig(m.tx, byte(i), m.registry.At(i).Expr); err != nil {
			return poop.Chain(err)
		}
	}

	m.armTimer(m.refreshTimeout)
	return nil
}

// armTimer arms the deadline and records its generation. expire
// re-checks the generation under m.mu, so a deadline replaced while
// its callback was waiting for the lock is discarded rather than run.
func (m *Monitor) armTimer(d time.Duration) {
	m.timerGen = m.timer.Arm(d)
}

// RequestUpdateAll asks the peer to resend every registered equation's
// current value.
func (m *Monitor) RequestUpdateAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestUpdateAll()
}

func (m *Monitor) requestUpdateAll() error {
	return poop.Chain(writeControl(m.tx, OpcodeUpdateAll))
}

// Reset restarts the protocol: the peer is told to discard its
// equations (when one is listening), every stored value is cleared to
// NaN, and registration starts over.
func (m *Monitor) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset()
}

func (m *Monitor) reset() error {
	if m.tx.Connections() > 0 {
		if err := writeControl(m.tx, OpcodeReset); err != nil {
			return poop.Chain(err)
		}
	}

	m.registry.ResetAll()
	m.state = StateStarted
	return m.configureEquations()
}

// HasValidData reports whether the peer has been feeding values
// recently enough to trust the stored readings. A forced refresh still
// counts until the reset deadline passes.
func (m *Monitor) HasValidData() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateActive || m.state == StateForcedRefresh
}

// State returns the monitor's current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Value returns the last decoded reading for the equation at index,
// NaN when no reading has arrived or the index is unknown.
func (m *Monitor) Value(index int) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= m.registry.Len() {
		return float32(math.NaN())
	}
	return m.registry.At(index).Value()
}

// Updates yields decoded readings as they arrive. The iterator ends
// when ctx is done or the monitor is closed. A consumer that falls
// behind misses updates rather than stalling the transport.
func (m *Monitor) Updates(ctx context.Context) iter.Seq[Update] {
	return m.updates.subscribe(ctx)
}

// HandleAck is invoked by the transport binding when the peer writes
// to the config channel. A 2-byte write whose first byte is 0 confirms
// the peer finished registering an equation; anything else is ignored.
// An ack arriving before Start leaves the state machine untouched.
func (m *Monitor) HandleAck(data []byte) {
	if len(data) != 2 || data[0] != 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.markActive()
}

// HandleValues is invoked by the transport binding when the peer
// writes value records to the notify channel. Each complete record is
// decoded independently; records naming an unknown equation and any
// truncated tail are skipped. It returns how many records were applied
// and how many were skipped. Values arriving before Start are decoded
// but leave the state machine untouched.
func (m *Monitor) HandleValues(data []byte) (applied, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	applied, skipped = decodeValueRecords(data, func(index byte, raw int32) bool {
		if !m.registry.Decode(index, raw) {
			return false
		}
		m.updates.publish(Update{
			Index: index,
			Value: m.registry.At(int(index)).Value(),
		})
		return true
	})

	m.markActive()
	return applied, skipped
}

// markActive records that the peer is consuming data. Before Start the
// ladder is not running, so there is nothing to re-arm.
func (m *Monitor) markActive() {
	if m.state == StateUninitialized {
		return
	}
	m.armTimer(m.refreshTimeout)
	m.state = StateActive
}

// expire is the sole timeout handler, dispatched by state. The ladder
// is retry registration, then force a refresh, then give up and reset.
func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A deadline superseded while this callback waited for the lock
	// must not run against the state that replaced it.
	if gen != m.timerGen {
		return
	}

	var err error
	switch m.state {
	case StateStarted:
		// Covers both "no peer yet" and "peer dropped our chunks".
		m.armTimer(m.initTimeout)
		err = m.configureEquations()
	case StateActive:
		m.armTimer(m.resetTimeout - m.refreshTimeout)
		m.state = StateForcedRefresh
		err = m.requestUpdateAll()
	case StateForcedRefresh:
		// The peer never answered the forced refresh.
		err = m.reset()
	}

	if err != nil && m.onError != nil {
		m.onError(poop.Chain(err))
	}
}

// Close cancels the pending deadline and ends all update
// subscriptions. The monitor must not be used afterwards.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer.Cancel()
	// Generations are never zero, so an expiry already past the timer's
	// own staleness check cannot match.
	m.timerGen = 0
	m.updates.shutdown()
}
