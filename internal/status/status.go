// Package status provides a thread-safe status tracker for the water-sensor daemon.
// It is read by the HTTP status server and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/report"
)

// NetworkInfo contains network state as published by pi-helper.
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
	PollMs          int64
	HeartbeatMs     int64
	ThresholdMedium int
	ThresholdHigh   int
	Confirm         int
	StoreBackend    string
	Unsynced        string
	Broker          string
	HTTPPort        string
}

// ReportStats counts reporter outcomes since startup.
type ReportStats struct {
	OK        int
	Failed    int
	Skipped   int
	LastPath  string
	LastError string
	LastAt    time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Level      logic.Level
	Raw        int
	LastSample time.Time
	Counts     logic.LevelCounts
	Reports    ReportStats

	DeviceID         string
	StartTime        time.Time
	Now              time.Time
	NetworkConnected bool
	StoreReady       bool
	ClockSynced      bool
	MQTTConnected    bool
	Network          *NetworkInfo
	Host             *HostInfo
	Config           Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, deviceID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			DeviceID:  deviceID,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the latest sample. Called from the poll loop on every tick.
func (t *Tracker) Update(level logic.Level, raw int, counts logic.LevelCounts, at time.Time) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.Raw = raw
	t.snap.Counts = counts
	t.snap.LastSample = at
	t.mu.Unlock()
}

// RecordReport folds a reporter outcome into the report counters.
func (t *Tracker) RecordReport(out report.Outcome, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := &t.snap.Reports
	r.LastAt = at
	if out.Skipped {
		r.Skipped++
		return
	}
	for _, w := range out.Writes {
		r.LastPath = w.Path
		if w.Err != nil {
			r.Failed++
			r.LastError = w.Err.Error()
		} else {
			r.OK++
		}
	}
}

// SetConnectivity records network, store and clock readiness.
func (t *Tracker) SetConnectivity(network, store, clock bool) {
	t.mu.Lock()
	t.snap.NetworkConnected = network
	t.snap.StoreReady = store
	t.snap.ClockSynced = clock
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

// SetHost sets the host statistics.
func (t *Tracker) SetHost(info *HostInfo) {
	t.mu.Lock()
	t.snap.Host = info
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
