package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/report"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const device = "B8:27:EB:12:34:56"

func newTestTracker(now time.Time) *Tracker {
	tr := NewTracker(start, device, Config{
		PollMs:          2000,
		HeartbeatMs:     900000,
		ThresholdMedium: 1900,
		ThresholdHigh:   2200,
		Confirm:         1,
		StoreBackend:    "firestore",
		Unsynced:        "skip",
		HTTPPort:        ":80",
	})
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	tr := newTestTracker(start)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.DeviceID != device {
		t.Errorf("DeviceID: got %q", snap.DeviceID)
	}
	if snap.Level != logic.LevelUnset {
		t.Errorf("expected UNSET level initially, got %s", snap.Level)
	}
	if snap.MQTTConnected || snap.StoreReady || snap.ClockSynced || snap.NetworkConnected {
		t.Error("expected every link down initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := newTestTracker(start)
	at := start.Add(time.Minute)

	tr.Update(logic.LevelMedium, 2050, logic.LevelCounts{Low: 1, Medium: 2}, at)

	snap := tr.Snapshot()
	if snap.Level != logic.LevelMedium || snap.Raw != 2050 {
		t.Errorf("got level=%s raw=%d", snap.Level, snap.Raw)
	}
	if snap.Counts.Medium != 2 || snap.Counts.Low != 1 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
	if !snap.LastSample.Equal(at) {
		t.Errorf("LastSample: got %v, want %v", snap.LastSample, at)
	}
}

func TestRecordReport(t *testing.T) {
	tr := newTestTracker(start)

	tr.RecordReport(report.Outcome{Writes: []report.Write{
		{Path: "water_sensor/x/readings/t1"},
		{Path: "alerts/t1", Err: errors.New("PERMISSION_DENIED")},
	}}, start)
	tr.RecordReport(report.Outcome{Skipped: true}, start)

	r := tr.Snapshot().Reports
	if r.OK != 1 || r.Failed != 1 || r.Skipped != 1 {
		t.Errorf("unexpected counters: %+v", r)
	}
	if r.LastPath != "alerts/t1" || r.LastError != "PERMISSION_DENIED" {
		t.Errorf("unexpected last write: %+v", r)
	}
}

func TestSetConnectivity(t *testing.T) {
	tr := newTestTracker(start)
	tr.SetConnectivity(true, true, false)
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if !snap.NetworkConnected || !snap.StoreReady || snap.ClockSynced || !snap.MQTTConnected {
		t.Errorf("unexpected links: %+v", snap)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := newTestTracker(start)
	tr.Update(logic.LevelLow, 1000, logic.LevelCounts{Low: 1}, start)

	snap := tr.Snapshot()
	tr.Update(logic.LevelHigh, 3000, logic.LevelCounts{Low: 1, High: 1}, start)

	if snap.Level != logic.LevelLow {
		t.Error("snapshot should not change after later updates")
	}
}

func TestUptime(t *testing.T) {
	tr := newTestTracker(start.Add(90 * time.Second))
	if up := tr.Snapshot().Uptime(); up != 90*time.Second {
		t.Errorf("expected 90s uptime, got %v", up)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), device, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(logic.LevelLow, i*j, logic.LevelCounts{}, time.Now())
				tr.SetMQTTConnected(j%2 == 0)
				tr.RecordReport(report.Outcome{Skipped: true}, time.Now())
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Reports.Skipped; got != 1000 {
		t.Errorf("expected 1000 skipped reports, got %d", got)
	}
}

func TestFormatJSON(t *testing.T) {
	tr := newTestTracker(start.Add(time.Hour))
	tr.Update(logic.LevelHigh, 2500, logic.LevelCounts{Low: 1, High: 1}, start.Add(time.Hour))
	tr.SetConnectivity(true, true, true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "tank-shed"})
	tr.SetHost(&HostInfo{UptimeSeconds: 7200, Load1: 0.123, MemUsedMB: 120.04, MemTotalMB: 926.1, DiskUsedPct: 41.66})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Level != "HIGH" || s.Raw != 2500 || s.DeviceID != device {
		t.Errorf("unexpected level fields: %+v", s)
	}
	if s.UptimeSeconds != 3600 {
		t.Errorf("UptimeSeconds: got %d", s.UptimeSeconds)
	}
	if s.Timestamp != "2026-01-01T01:00:00Z" || s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("unexpected times: %s %s", s.StartTime, s.Timestamp)
	}
	if !s.Links.Network || !s.Links.Store || !s.Links.Clock || s.Links.MQTT {
		t.Errorf("unexpected links: %+v", s.Links)
	}
	if s.Counts.High != 1 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.Network == nil || s.Network.SSID != "tank-shed" {
		t.Errorf("unexpected network: %+v", s.Network)
	}
	if s.Host == nil || s.Host.Load1 != 0.1 || s.Host.DiskUsedPct != 41.7 {
		t.Errorf("unexpected host: %+v", s.Host)
	}
	if s.Config.ThresholdHigh != 2200 || s.Config.StoreBackend != "firestore" {
		t.Errorf("unexpected config: %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event/reason")
	}
}

func TestFormatJSONUnsetBeforeFirstSample(t *testing.T) {
	var parsed map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(newTestTracker(start).Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed["status"]
	if s["level"] != "UNSET" {
		t.Errorf("expected UNSET, got %v", s["level"])
	}
	for _, key := range []string{"last_sample", "network", "host"} {
		if _, ok := s[key]; ok {
			t.Errorf("%s should be omitted before it is known", key)
		}
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newTestTracker(start)
	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected event/reason: %q %q", parsed.Status.Event, parsed.Status.Reason)
	}
	for _, b := range data {
		if b == '\n' {
			t.Fatal("MQTT payload should be compact")
		}
	}
}
