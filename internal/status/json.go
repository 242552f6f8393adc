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
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	State         string         `json:"state"`
	LastReason    string         `json:"last_reason,omitempty"`
	DwellSeconds  int64          `json:"dwell_seconds"`
	Inputs        []bool         `json:"inputs"`
	Relays        []bool         `json:"relays"`
	Indicators    IndicatorsJSON `json:"indicators"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"transition_counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// IndicatorsJSON reports indicator levels, rounded to two decimals.
type IndicatorsJSON struct {
	Power float64 `json:"power"`
	Comms float64 `json:"comms"`
	Warn  float64 `json:"warn"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Off             int `json:"off"`
	TurningOn       int `json:"turning_on"`
	Armed           int `json:"armed"`
	On              int `json:"on"`
	PowerOnTimeouts int `json:"poweron_timeouts"`
	ArmedTimeouts   int `json:"armed_timeouts"`
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

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	PowerOnHoldMs int64  `json:"poweron_hold_ms"`
	ArmedHoldMs   int64  `json:"armed_hold_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	RelayMode     string `json:"relay_mode"`
	Channels      int    `json:"channels"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

// StateOrUnknown returns the state name, or UNKNOWN before the first sample.
func (s Snapshot) StateOrUnknown() string {
	if s.State == "" {
		return "UNKNOWN"
	}
	return string(s.State)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func bools(b []bool) []bool {
	if b == nil {
		return []bool{}
	}
	return b
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:        snap.StateOrUnknown(),
		LastReason:   string(snap.LastReason),
		DwellSeconds: int64(snap.Dwell().Truncate(time.Second).Seconds()),
		Inputs:       bools(snap.Inputs),
		Relays:       bools(snap.Outputs.Relays),
		Indicators: IndicatorsJSON{
			Power: round2(snap.Outputs.Power),
			Comms: round2(snap.Outputs.Comms),
			Warn:  round2(snap.Outputs.Warn),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Off:             snap.Counts.Off,
			TurningOn:       snap.Counts.TurningOn,
			Armed:           snap.Counts.Armed,
			On:              snap.Counts.On,
			PowerOnTimeouts: snap.Counts.PowerOnTimeouts,
			ArmedTimeouts:   snap.Counts.ArmedTimeouts,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			PowerOnHoldMs: snap.Config.PowerOnHoldMs,
			ArmedHoldMs:   snap.Config.ArmedHoldMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			RelayMode:     snap.Config.RelayMode,
			Channels:      snap.Config.Channels,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
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
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
