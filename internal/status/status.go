// Package status keeps the latest view of the oven for readers outside the
// control loop: the status page, the websocket feed and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// NetworkInfo is the host's network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the daemon's effective configuration, shown as-is to operators.
type Config struct {
	TickMs      int64
	DisplayMs   int64
	HeartbeatMs int64
	HysteresisC float64
	Profile     string
	Broker      string
	HTTPPort    string
	Serial      string // empty when serial telemetry is off
}

// Snapshot is a copy of the oven state at one instant. Readers own it.
type Snapshot struct {
	Oven      logic.Status
	RunID     string // empty outside a run
	Baselined bool   // false until the first tick has been observed
	Counts    logic.EventCounts

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker is written by the control loop and read by everyone else.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker starts out idle with no sensor reading, which is what the page
// shows until the first tick lands.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{}
	t.snap.Oven = logic.Status{Phase: logic.PhaseIdle, LastSample: logic.InvalidSample}
	t.snap.StartTime = startTime
	t.snap.Config = cfg
	return t
}

// Update stores one tick's outcome.
func (t *Tracker) Update(st logic.Status, runID string, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Oven, t.snap.RunID = st, runID
	t.snap.Baselined, t.snap.Counts = baselined, counts
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.MQTTConnected = connected
}

func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Network = info
}

// Snapshot copies the state and stamps it with the wall clock.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
