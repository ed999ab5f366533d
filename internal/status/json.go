package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string               `json:"event,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Ready         bool                 `json:"ready"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	StartTime     string               `json:"start_time"`
	Timestamp     string               `json:"timestamp"`
	Transport     TransportStatus      `json:"transport"`
	MQTT          MQTTStatus           `json:"mqtt"`
	Counts        CountsJSON           `json:"counts"`
	LastReading   *logic.Reading       `json:"last_reading,omitempty"`
	Triggers      []logic.TriggerState `json:"triggers"`
	Network       *NetworkJSON         `json:"network,omitempty"`
	Config        ConfigJSON           `json:"config"`
}

// TransportStatus reports the serial connection state.
type TransportStatus struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of running totals.
type CountsJSON struct {
	Readings      int `json:"readings"`
	ParseFailures int `json:"parse_failures"`
	Edges         int `json:"edges"`
	Commands      int `json:"commands"`
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
	SerialPort  string `json:"serial_port"`
	BaudRate    int    `json:"baud_rate"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Store       string `json:"store"`
	Cache       string `json:"cache,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	triggers := snap.Triggers
	if triggers == nil {
		triggers = []logic.TriggerState{}
	}

	return StatusInner{
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Transport:     TransportStatus{Connected: snap.TransportConnected, Port: snap.Config.SerialPort},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Readings:      snap.Counts.Readings,
			ParseFailures: snap.Counts.ParseFailures,
			Edges:         snap.Counts.Edges,
			Commands:      snap.Counts.Commands,
		},
		LastReading: snap.LastReading,
		Triggers:    triggers,
		Config: ConfigJSON{
			SerialPort:  snap.Config.SerialPort,
			BaudRate:    snap.Config.BaudRate,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Store:       snap.Config.Store,
			Cache:       snap.Config.Cache,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
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
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
