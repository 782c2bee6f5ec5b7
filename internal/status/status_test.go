package status

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/reflow-oven/internal/logic"
)

func heatingStatus() logic.Status {
	return logic.Status{
		Phase:      logic.PhaseSoak,
		Elapsed:    12,
		Duration:   90,
		TargetC:    180,
		LastSample: logic.SensorSample{ValueC: 176.5, Valid: true},
		RelayOn:    true,
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 1000, DisplayMs: 3000, Broker: "tcp://localhost:1883", HTTPPort: ":80", Profile: "Profil1"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 1000 {
		t.Errorf("Config.TickMs: got %d, want 1000", snap.Config.TickMs)
	}
	if snap.Oven.Phase != logic.PhaseIdle {
		t.Errorf("expected IDLE initially, got %q", snap.Oven.Phase)
	}
	if snap.Oven.LastSample.Valid {
		t.Error("expected no valid sample initially")
	}
	if snap.Baselined {
		t.Error("expected Baselined=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(heatingStatus(), "run-1", true, logic.EventCounts{RunsStarted: 3, RelaySwitches: 7})

	snap := tr.Snapshot()
	if snap.Oven.Phase != logic.PhaseSoak {
		t.Errorf("Phase: got %q, want SOAK", snap.Oven.Phase)
	}
	if !snap.Oven.RelayOn {
		t.Error("expected relay on")
	}
	if snap.RunID != "run-1" {
		t.Errorf("RunID: got %q, want run-1", snap.RunID)
	}
	if !snap.Baselined {
		t.Error("expected Baselined=true")
	}
	if snap.Counts.RunsStarted != 3 || snap.Counts.RelaySwitches != 7 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
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

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}

	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(heatingStatus(), "run-1", true, logic.EventCounts{RunsStarted: 1})

	snap := tr.Snapshot()
	tr.Update(logic.Status{Phase: logic.PhaseCooldown}, "run-1", true, logic.EventCounts{RunsStarted: 1, RunsAborted: 1})

	if snap.Oven.Phase != logic.PhaseSoak {
		t.Error("snapshot should not change after later Update")
	}
	if snap.Counts.RunsAborted != 0 {
		t.Error("snapshot counts should not change after later Update")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Oven:          heatingStatus(),
		RunID:         "run-1",
		Baselined:     true,
		Counts:        logic.EventCounts{RunsStarted: 5, RunsCompleted: 3, RunsAborted: 1, RelaySwitches: 40},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{TickMs: 1000, HeartbeatMs: 900000, HysteresisC: 0.5, Profile: "Profil1", Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	oven := parsed.Status.Oven
	if oven.Phase != "SOAK" {
		t.Errorf("Phase: got %q, want SOAK", oven.Phase)
	}
	if oven.ElapsedTicks != 12 || oven.DurationTicks != 90 {
		t.Errorf("ticks: got %d/%d, want 12/90", oven.ElapsedTicks, oven.DurationTicks)
	}
	if oven.TempC == nil || *oven.TempC != 176.5 {
		t.Errorf("TempC: got %v, want 176.5", oven.TempC)
	}
	if !oven.SensorOK {
		t.Error("expected SensorOK=true")
	}
	if oven.Relay != "ON" {
		t.Errorf("Relay: got %q, want ON", oven.Relay)
	}
	if oven.Fault != "" {
		t.Errorf("Fault: got %q, want empty", oven.Fault)
	}
	if oven.RunID != "run-1" || oven.Profile != "Profil1" {
		t.Errorf("run/profile: got %q/%q", oven.RunID, oven.Profile)
	}
	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.RunsStarted != 5 || parsed.Status.Counts.RelaySwitches != 40 {
		t.Errorf("unexpected counts: %+v", parsed.Status.Counts)
	}
	if parsed.Status.Config.HysteresisC != 0.5 {
		t.Errorf("HysteresisC: got %v, want 0.5", parsed.Status.Config.HysteresisC)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONSensorFault(t *testing.T) {
	snap := Snapshot{
		Oven: logic.Status{
			Phase:      logic.PhaseReflow,
			TargetC:    230,
			LastSample: logic.InvalidSample,
			Fault:      logic.ErrSensorFault,
		},
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("NaN sample must encode as valid JSON: %v", err)
	}
	var oven map[string]interface{}
	if err := json.Unmarshal(raw["status"]["oven"], &oven); err != nil {
		t.Fatalf("decode oven object: %v", err)
	}
	if v, exists := oven["temp_c"]; !exists || v != nil {
		t.Errorf("temp_c: expected null, got %v", v)
	}
	if oven["sensor_ok"] != false {
		t.Errorf("sensor_ok: got %v, want false", oven["sensor_ok"])
	}
	if oven["relay"] != "OFF" {
		t.Errorf("relay: got %v, want OFF", oven["relay"])
	}
	if oven["fault"] != logic.ErrSensorFault.Error() {
		t.Errorf("fault: got %v", oven["fault"])
	}
}

func TestFormatJSONInfiniteTempIsNull(t *testing.T) {
	snap := Snapshot{
		Oven: logic.Status{
			Phase:      logic.PhasePreheat,
			LastSample: logic.SensorSample{ValueC: math.Inf(-1), Valid: true},
		},
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("infinite sample must encode as valid JSON: %v", err)
	}
	if parsed.Status.Oven.TempC != nil {
		t.Errorf("TempC: got %v, want null", *parsed.Status.Oven.TempC)
	}
}

func TestFormatJSONUnknownPhase(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Oven.Phase != "UNKNOWN" {
		t.Errorf("Phase: got %q, want UNKNOWN", parsed.Status.Oven.Phase)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Oven:      heatingStatus(),
		Baselined: true,
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Oven.Phase != "SOAK" {
		t.Errorf("Phase: got %q, want SOAK", parsed.Status.Oven.Phase)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Oven:      logic.Status{Phase: logic.PhaseIdle},
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
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
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(heatingStatus(), "run", true, logic.EventCounts{RelaySwitches: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()

	wg.Wait()
}
