package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{SerialPort: "/dev/ttyACM0", PollMs: 100, Broker: "tcp://localhost:1883", HTTPPort: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":8080" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":8080")
	}
	if snap.Ready() {
		t.Error("expected Ready=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.LastReading != nil {
		t.Error("expected no reading initially")
	}
}

func TestRecordReadingAndCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.SetTransportConnected(true)
	tr.RecordReading(logic.Reading{Timestamp: ts, TempF: 71.5})
	tr.RecordReading(logic.Reading{Timestamp: ts.Add(time.Second), TempF: 72})
	tr.RecordParseFailure()
	tr.NotifyEdge(logic.Edge{Trigger: logic.TriggerFanStatus, Kind: logic.EdgeStart})
	tr.RecordCommand()
	tr.RecordCommand()

	snap := tr.Snapshot()
	if !snap.Ready() {
		t.Error("expected Ready=true with transport and a reading")
	}
	if snap.LastReading == nil || snap.LastReading.TempF != 72 {
		t.Errorf("LastReading: got %+v, want TempF 72", snap.LastReading)
	}
	want := Counts{Readings: 2, ParseFailures: 1, Edges: 1, Commands: 2}
	if snap.Counts != want {
		t.Errorf("Counts: got %+v, want %+v", snap.Counts, want)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetTriggers([]logic.TriggerState{{Name: logic.TriggerFanStatus, Active: true}})
	tr.RecordReading(logic.Reading{TempF: 70})

	snap1 := tr.Snapshot()

	tr.SetTriggers([]logic.TriggerState{{Name: logic.TriggerFanStatus, Active: false}})
	tr.RecordReading(logic.Reading{TempF: 90})

	if !snap1.Triggers[0].Active {
		t.Error("snapshot should be a copy; triggers were modified")
	}
	if snap1.LastReading.TempF != 70 {
		t.Error("snapshot should be a copy; last reading was modified")
	}
}

func TestSetTriggersCopiesInput(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	states := []logic.TriggerState{{Name: logic.TriggerHumidityControl, Active: true}}
	tr.SetTriggers(states)
	states[0].Active = false

	if !tr.Snapshot().Triggers[0].Active {
		t.Error("tracker must not alias the caller's slice")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		TransportConnected: true,
		LastReading:        &logic.Reading{Timestamp: start, TempF: 81, Humidity: 60},
		Triggers:           logic.Evaluate(logic.Reading{TempF: 81, MoistureA: 50, MoistureB: 50}),
		Counts:             Counts{Readings: 5, ParseFailures: 2, Edges: 1},
		StartTime:          start,
		Now:                start.Add(15 * time.Minute),
		MQTTConnected:      true,
		Config:             Config{SerialPort: "/dev/ttyACM0", BaudRate: 9600, PollMs: 100, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":8080", Store: "memory"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !parsed.Status.Transport.Connected || parsed.Status.Transport.Port != "/dev/ttyACM0" {
		t.Errorf("Transport: got %+v", parsed.Status.Transport)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Readings != 5 || parsed.Status.Counts.ParseFailures != 2 {
		t.Errorf("Counts: got %+v", parsed.Status.Counts)
	}
	if parsed.Status.LastReading == nil || parsed.Status.LastReading.TempF != 81 {
		t.Errorf("LastReading: got %+v", parsed.Status.LastReading)
	}
	if len(parsed.Status.Triggers) != len(logic.Definitions) {
		t.Fatalf("Triggers: got %d, want %d", len(parsed.Status.Triggers), len(logic.Definitions))
	}
	if !parsed.Status.Triggers[0].Active {
		t.Error("expected temperature-cooldown active at 81F")
	}
	if parsed.Status.Config.Store != "memory" {
		t.Errorf("Config.Store: got %q, want memory", parsed.Status.Config.Store)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	status := raw["status"].(map[string]interface{})

	if _, exists := status["last_reading"]; exists {
		t.Error("last_reading should be omitted before the first reading")
	}
	triggers, ok := status["triggers"].([]interface{})
	if !ok || len(triggers) != 0 {
		t.Errorf("triggers: got %v, want empty array", status["triggers"])
	}
	if status["ready"] != false {
		t.Errorf("ready: got %v, want false", status["ready"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		TransportConnected: true,
		Counts:             Counts{Readings: 3},
		StartTime:          start,
		Now:                start.Add(15 * time.Minute),
		MQTTConnected:      true,
		Config:             Config{PollMs: 100, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Counts.Readings != 3 {
		t.Errorf("Counts.Readings: got %d, want 3", parsed.Status.Counts.Readings)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "Greenhouse"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "Greenhouse" {
		t.Errorf("Network.SSID: got %q, want Greenhouse", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.RecordReading(logic.Reading{TempF: float64(i)})
			tr.SetTriggers(logic.Evaluate(logic.Reading{TempF: float64(i)}))
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
