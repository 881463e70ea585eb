package racechrono

import (
	"context"
	"encoding/binary"
	"testing"
)

func TestUpdates(t *testing.T) {
	m, _, _ := newTestMonitor(t, 1)
	if _, err := m.Add("rpm", 2); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	updates := m.Updates(t.Context())

	m.HandleValues(BytesFrom(
		Byte(0), Int32(10, binary.BigEndian),
	))

	for u := range updates {
		if u.Index != 0 || u.Value != 5 {
			t.Fatalf("expected {0 5}, got %+v", u)
		}
		break
	}
}

func TestUpdatesContextDone(t *testing.T) {
	m, _, _ := newTestMonitor(t, 1)

	ctx, cancel := context.WithCancel(t.Context())
	updates := m.Updates(ctx)
	cancel()

	for range updates {
		t.Fatal("iterator should end when the context is done")
	}
}

func TestUpdatesMonitorClose(t *testing.T) {
	m, _, _ := newTestMonitor(t, 1)

	updates := m.Updates(t.Context())
	m.Close()

	for range updates {
		t.Fatal("iterator should end when the monitor is closed")
	}
}

func TestUpdatesSlowSubscriber(t *testing.T) {
	m, _, _ := newTestMonitor(t, 1)
	if _, err := m.Add("rpm", 1); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	// Nobody is draining this subscription; overflowing its buffer
	// must not block the dispatch path.
	_ = m.Updates(t.Context())

	for i := 0; i < 100; i++ {
		m.HandleValues(BytesFrom(
			Byte(0), Int32(int32(i), binary.BigEndian),
		))
	}
}
