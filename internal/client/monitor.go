package client

import (
	"context"
	"sync"
	"time"

	"github.com/Raj5489/Share-Me/internal/proto"
)

// Heartbeat defaults. The interval tightens while the client judges
// itself backgrounded, and silence past the timeout marks the
// connection unhealthy.
const (
	HeartbeatInterval           = 10 * time.Second
	BackgroundHeartbeatInterval = 5 * time.Second
	PongTimeout                 = 30 * time.Second
)

// HealthState is the monitor's explicit connection verdict.
type HealthState int

const (
	Healthy HealthState = iota
	Unhealthy
)

func (s HealthState) String() string {
	if s == Unhealthy {
		return "unhealthy"
	}
	return "healthy"
}

// Monitor emits heartbeat pings carrying the local clock and activity
// flags, tracks time since the last pong, and flips to Unhealthy once
// silence exceeds the timeout. The unhealthy transition invokes the
// reconnect hook exactly once per incident; a pong restores Healthy.
type Monitor struct {
	interval           time.Duration
	backgroundInterval time.Duration
	timeout            time.Duration

	emit         EmitFunc
	transferring func() bool
	onUnhealthy  func()
	now          func() time.Time

	mu         sync.Mutex
	lastPong   time.Time
	state      HealthState
	background bool
}

// NewMonitor builds a monitor with default timings. transferring may be
// nil; onUnhealthy may be nil when no reconnect action is wanted.
func NewMonitor(emit EmitFunc, transferring func() bool, onUnhealthy func()) *Monitor {
	return &Monitor{
		interval:           HeartbeatInterval,
		backgroundInterval: BackgroundHeartbeatInterval,
		timeout:            PongTimeout,
		emit:               emit,
		transferring:       transferring,
		onUnhealthy:        onUnhealthy,
		now:                time.Now,
		state:              Healthy,
	}
}

// State returns the current health verdict.
func (m *Monitor) State() HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetBackground switches between foreground and background heartbeat
// cadence. Takes effect from the next tick.
func (m *Monitor) SetBackground(bg bool) {
	m.mu.Lock()
	m.background = bg
	m.mu.Unlock()
}

// RecordPong notes a heartbeat answer and restores the Healthy state.
// The echoed timestamp is accepted as-is; only arrival time matters.
func (m *Monitor) RecordPong(timestamp int64) {
	_ = timestamp
	m.mu.Lock()
	m.lastPong = m.now()
	m.state = Healthy
	m.mu.Unlock()
}

// ResetDeadline restarts the silence clock, typically right after a
// reconnect so the fresh connection gets a full timeout window.
func (m *Monitor) ResetDeadline() {
	m.mu.Lock()
	m.lastPong = m.now()
	m.mu.Unlock()
}

// Run emits pings on the current cadence and checks the silence window
// until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.ResetDeadline()
	for {
		select {
		case <-time.After(m.currentInterval()):
		case <-ctx.Done():
			return
		}
		m.tick()
	}
}

func (m *Monitor) currentInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.background {
		return m.backgroundInterval
	}
	return m.interval
}

// tick sends one heartbeat and evaluates the silence window. Split out
// so tests can drive the monitor without wall-clock waits.
func (m *Monitor) tick() {
	active := false
	if m.transferring != nil {
		active = m.transferring()
	}
	m.mu.Lock()
	bg := m.background
	m.mu.Unlock()

	// Failed emissions during a disconnect are simply dropped; the
	// silence window is what detects the dead transport.
	_ = m.emit(proto.InboundTypePing, proto.PingData{
		Timestamp:    m.now().UnixMilli(),
		Transferring: active,
		Background:   bg,
	})

	m.mu.Lock()
	silent := m.now().Sub(m.lastPong)
	tripped := silent > m.timeout && m.state == Healthy
	if tripped {
		m.state = Unhealthy
	}
	m.mu.Unlock()

	if tripped && m.onUnhealthy != nil {
		m.onUnhealthy()
	}
}
