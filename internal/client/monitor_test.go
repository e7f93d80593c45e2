package client

import (
	"testing"
	"time"

	"github.com/Raj5489/Share-Me/internal/proto"
)

func testMonitor(start time.Time, rec *emitRecorder, transferring func() bool, onUnhealthy func()) (*Monitor, *time.Time) {
	now := start
	m := NewMonitor(rec.emit, transferring, onUnhealthy)
	m.now = func() time.Time { return now }
	m.ResetDeadline()
	return m, &now
}

func TestMonitorEmitsPingWithActivityFlags(t *testing.T) {
	rec := &emitRecorder{}
	active := false
	m, now := testMonitor(time.Unix(1_700_000_000, 0), rec, func() bool { return active }, nil)

	m.tick()
	active = true
	m.SetBackground(true)
	*now = now.Add(time.Second)
	m.tick()

	types, data := rec.snapshot()
	if len(types) != 2 || types[0] != proto.InboundTypePing {
		t.Fatalf("expected two pings, got %v", types)
	}
	first := data[0].(proto.PingData)
	second := data[1].(proto.PingData)
	if first.Transferring || first.Background {
		t.Fatalf("idle foreground ping carried flags: %+v", first)
	}
	if !second.Transferring || !second.Background {
		t.Fatalf("active background ping missing flags: %+v", second)
	}
	if second.Timestamp <= first.Timestamp {
		t.Fatalf("ping timestamps must advance")
	}
}

func TestMonitorTripsUnhealthyOncePerIncident(t *testing.T) {
	rec := &emitRecorder{}
	trips := 0
	m, now := testMonitor(time.Unix(1_700_000_000, 0), rec, nil, func() { trips++ })

	*now = now.Add(PongTimeout - time.Second)
	m.tick()
	if m.State() != Healthy {
		t.Fatalf("still inside the timeout window")
	}

	*now = now.Add(2 * time.Second)
	m.tick()
	if m.State() != Unhealthy {
		t.Fatalf("silence past the timeout must flip the state")
	}
	if trips != 1 {
		t.Fatalf("onUnhealthy fired %d times, want 1", trips)
	}

	// Continued silence does not re-fire the hook.
	*now = now.Add(time.Minute)
	m.tick()
	if trips != 1 {
		t.Fatalf("onUnhealthy re-fired during the same incident")
	}
}

func TestMonitorPongRestoresHealth(t *testing.T) {
	rec := &emitRecorder{}
	trips := 0
	m, now := testMonitor(time.Unix(1_700_000_000, 0), rec, nil, func() { trips++ })

	*now = now.Add(PongTimeout + time.Second)
	m.tick()
	if m.State() != Unhealthy {
		t.Fatalf("expected unhealthy")
	}

	m.RecordPong(now.UnixMilli())
	if m.State() != Healthy {
		t.Fatalf("pong must restore health")
	}

	// A fresh incident fires the hook again.
	*now = now.Add(PongTimeout + time.Second)
	m.tick()
	if trips != 2 {
		t.Fatalf("onUnhealthy fired %d times, want 2", trips)
	}
}

func TestMonitorBackgroundCadence(t *testing.T) {
	rec := &emitRecorder{}
	m, _ := testMonitor(time.Unix(1_700_000_000, 0), rec, nil, nil)

	if m.currentInterval() != HeartbeatInterval {
		t.Fatalf("foreground interval = %v", m.currentInterval())
	}
	m.SetBackground(true)
	if m.currentInterval() != BackgroundHeartbeatInterval {
		t.Fatalf("background interval = %v", m.currentInterval())
	}
	m.SetBackground(false)
	if m.currentInterval() != HeartbeatInterval {
		t.Fatalf("interval must restore on foreground")
	}
}

func TestMonitorResetDeadlineGivesFullWindow(t *testing.T) {
	rec := &emitRecorder{}
	m, now := testMonitor(time.Unix(1_700_000_000, 0), rec, nil, func() {
		t.Fatalf("fresh deadline must not trip")
	})

	*now = now.Add(PongTimeout + time.Second)
	m.ResetDeadline()
	*now = now.Add(time.Second)
	m.tick()
	if m.State() != Healthy {
		t.Fatalf("reset deadline should keep the monitor healthy")
	}
}
