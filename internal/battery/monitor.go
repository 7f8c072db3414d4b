// Package battery tracks the robot's charge level from an asynchronous stream
// of readings and exposes the latest snapshot to the mission loop.
package battery

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"cp1-controllers/internal/interfaces"
)

// UnknownCharge is the charge value before the first reading arrives.
const UnknownCharge = -1.0

// reportBand is the fraction of capacity a reading must move before it is logged again.
const reportBand = 0.01

// Snapshot is a consistent copy of the battery state.
type Snapshot struct {
	Charge             float64   `json:"charge"`
	Capacity           float64   `json:"capacity"`
	LowThreshold       float64   `json:"low_threshold"`
	IsLow              bool      `json:"is_low"`
	Known              bool      `json:"known"`
	LastReportedCharge float64   `json:"last_reported_charge"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LowChargeLevel is the absolute charge (Ah) below which the battery is low.
func (s Snapshot) LowChargeLevel() float64 {
	return s.LowThreshold * s.Capacity
}

// Store mirrors snapshots somewhere observable (Redis in production).
type Store interface {
	SaveBattery(ctx context.Context, s Snapshot) error
}

// Monitor holds the single-slot battery snapshot. Readers never block on the
// listener; a newer reading simply replaces the previous one.
type Monitor struct {
	mu    sync.RWMutex
	state Snapshot

	logger  interfaces.Logger
	store   Store
	started atomic.Bool
	done    chan struct{}
	now     func() time.Time
}

// NewMonitor creates a monitor with an unknown charge, which counts as low.
// lowThreshold is a fraction of capacity, e.g. 0.90.
func NewMonitor(capacity, lowThreshold float64, logger interfaces.Logger) *Monitor {
	return &Monitor{
		state: Snapshot{
			Charge:             UnknownCharge,
			Capacity:           capacity,
			LowThreshold:       lowThreshold,
			IsLow:              UnknownCharge < lowThreshold*capacity,
			LastReportedCharge: UnknownCharge,
		},
		logger: logger,
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// WithStore attaches a snapshot mirror. Must be called before Start.
func (m *Monitor) WithStore(store Store) *Monitor {
	m.store = store
	return m
}

// Start consumes readings in a background goroutine until ctx is cancelled or
// the channel is closed. It returns immediately. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context, readings <-chan float64) {
	if !m.started.CompareAndSwap(false, true) {
		m.logger.Warnf("battery monitor already started")
		return
	}

	go func() {
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-readings:
				if !ok {
					m.logger.Warnf("battery reading stream closed, keeping last snapshot")
					return
				}
				m.OnChargeUpdate(v)
			}
		}
	}()
}

// Done is closed when the listener goroutine exits.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// OnChargeUpdate applies one reading. It reports whether the reading moved far
// enough from the last logged value to be logged.
func (m *Monitor) OnChargeUpdate(value float64) bool {
	m.mu.Lock()
	wasLow, wasKnown := m.state.IsLow, m.state.Known
	m.state.Charge = value
	m.state.Known = true
	m.state.IsLow = value < m.state.LowChargeLevel()
	m.state.UpdatedAt = m.now()

	reported := math.Abs(value-m.state.LastReportedCharge) > reportBand*m.state.Capacity
	if reported {
		m.state.LastReportedCharge = value
	}
	snap := m.state
	m.mu.Unlock()

	if reported {
		m.logger.Infof("Battery charge: %.4fAh", value)
	}
	changed := snap.IsLow != wasLow || !wasKnown
	switch {
	case snap.IsLow && changed:
		m.logger.Warnf("🔋 Battery dropped below %.4fAh (charge %.4fAh)", snap.LowChargeLevel(), value)
	case !snap.IsLow && wasLow && wasKnown:
		m.logger.Infof("🔋 Battery recovered above %.4fAh (charge %.4fAh)", snap.LowChargeLevel(), value)
	}

	if m.store != nil && (reported || changed) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := m.store.SaveBattery(ctx, snap); err != nil {
			m.logger.Debugf("battery snapshot mirror failed: %v", err)
		}
		cancel()
	}
	return reported
}

// CurrentCharge returns the latest charge in Ah, or UnknownCharge.
func (m *Monitor) CurrentCharge() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Charge
}

// IsLow reports whether the latest charge is below the low threshold.
// It is true until the first reading arrives.
func (m *Monitor) IsLow() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsLow
}

// Snapshot returns charge and derived flag read under one lock.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Capacity returns the configured capacity in Ah.
func (m *Monitor) Capacity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Capacity
}
