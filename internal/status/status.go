// Package status provides a thread-safe status tracker for the triggerpi daemon.
// It is written by the control loop and read by HTTP handlers and MQTT
// lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/triggerpi/internal/trigger"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	PowerOnHoldMs int64
	ArmedHoldMs   int64
	HeartbeatMs   int64
	RelayMode     string
	Channels      int
	Broker        string
	HTTPAddr      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         trigger.State
	EnteredAt     time.Time
	LastReason    trigger.Reason
	Inputs        trigger.Sample
	Outputs       trigger.Outputs
	Counts        trigger.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Dwell returns how long the machine has been in its current state.
func (s Snapshot) Dwell() time.Duration {
	if s.EnteredAt.IsZero() {
		return 0
	}
	return s.Now.Sub(s.EnteredAt)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the machine, the sample it was evaluated against, the
// resulting outputs and the transition counts. Called from the control loop
// on every tick.
func (t *Tracker) Update(m trigger.Machine, reason trigger.Reason, in trigger.Sample, out trigger.Outputs, counts trigger.Counts) {
	inputs := append(trigger.Sample(nil), in...)
	out.Relays = append(trigger.RelayPattern(nil), out.Relays...)

	t.mu.Lock()
	t.snap.State = m.State
	t.snap.EnteredAt = m.EnteredAt
	if reason != "" {
		t.snap.LastReason = reason
	}
	t.snap.Inputs = inputs
	t.snap.Outputs = out
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
