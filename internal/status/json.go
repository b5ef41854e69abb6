package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	DeviceID      string       `json:"device_id"`
	Level         string       `json:"level"`
	Raw           int          `json:"raw"`
	LastSample    string       `json:"last_sample,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Links         LinksJSON    `json:"links"`
	Counts        CountsJSON   `json:"level_counts"`
	Reports       ReportsJSON  `json:"reports"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Host          *HostJSON    `json:"host,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LinksJSON reports the state of each collaborator.
type LinksJSON struct {
	Network bool `json:"network"`
	Store   bool `json:"store"`
	Clock   bool `json:"clock"`
	MQTT    bool `json:"mqtt"`
}

// CountsJSON is the JSON representation of level entry counts.
type CountsJSON struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// ReportsJSON is the JSON representation of reporter outcomes.
type ReportsJSON struct {
	OK        int    `json:"ok"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	LastPath  string `json:"last_path,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// HostJSON is the JSON representation of host stats.
type HostJSON struct {
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Load1         float64 `json:"load1"`
	MemUsedMB     float64 `json:"mem_used_mb"`
	MemTotalMB    float64 `json:"mem_total_mb"`
	DiskUsedPct   float64 `json:"disk_used_pct"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	ThresholdMedium int    `json:"threshold_medium"`
	ThresholdHigh   int    `json:"threshold_high"`
	Confirm         int    `json:"confirm"`
	StoreBackend    string `json:"store"`
	Unsynced        string `json:"unsynced"`
	Broker          string `json:"broker,omitempty"`
	HTTPPort        string `json:"http_port"`
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		DeviceID:      snap.DeviceID,
		Level:         snap.Level.String(),
		Raw:           snap.Raw,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Links: LinksJSON{
			Network: snap.NetworkConnected,
			Store:   snap.StoreReady,
			Clock:   snap.ClockSynced,
			MQTT:    snap.MQTTConnected,
		},
		Counts: CountsJSON{
			Low:    snap.Counts.Low,
			Medium: snap.Counts.Medium,
			High:   snap.Counts.High,
		},
		Reports: ReportsJSON{
			OK:        snap.Reports.OK,
			Failed:    snap.Reports.Failed,
			Skipped:   snap.Reports.Skipped,
			LastPath:  snap.Reports.LastPath,
			LastError: snap.Reports.LastError,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			ThresholdMedium: snap.Config.ThresholdMedium,
			ThresholdHigh:   snap.Config.ThresholdHigh,
			Confirm:         snap.Config.Confirm,
			StoreBackend:    snap.Config.StoreBackend,
			Unsynced:        snap.Config.Unsynced,
			Broker:          snap.Config.Broker,
			HTTPPort:        snap.Config.HTTPPort,
		},
	}
	if !snap.LastSample.IsZero() {
		inner.LastSample = snap.LastSample.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildOptional(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	if snap.Host != nil {
		inner.Host = &HostJSON{
			UptimeSeconds: snap.Host.UptimeSeconds,
			Load1:         round1(snap.Host.Load1),
			MemUsedMB:     round1(snap.Host.MemUsedMB),
			MemTotalMB:    round1(snap.Host.MemTotalMB),
			DiskUsedPct:   round1(snap.Host.DiskUsedPct),
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildOptional(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildOptional(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
