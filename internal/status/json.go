package status

import (
	"encoding/json"
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
	Oven          OvenJSON     `json:"oven"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// OvenJSON is the JSON representation of the controller status.
type OvenJSON struct {
	Phase         string   `json:"phase"`
	ElapsedTicks  int      `json:"elapsed_ticks"`
	DurationTicks int      `json:"duration_ticks"`
	TargetC       float64  `json:"target_c"`
	TempC         *float64 `json:"temp_c"`
	SensorOK      bool     `json:"sensor_ok"`
	Relay         string   `json:"relay"`
	Fault         string   `json:"fault,omitempty"`
	RunID         string   `json:"run_id,omitempty"`
	Profile       string   `json:"profile"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	RunsStarted      int `json:"runs_started"`
	RunsCompleted    int `json:"runs_completed"`
	RunsAborted      int `json:"runs_aborted"`
	RelaySwitches    int `json:"relay_switches"`
	SensorFaults     int `json:"sensor_faults"`
	RejectedCommands int `json:"rejected_commands"`
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
	TickMs      int64   `json:"tick_ms"`
	DisplayMs   int64   `json:"display_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	HysteresisC float64 `json:"hysteresis_c"`
	Profile     string  `json:"profile"`
	Broker      string  `json:"broker"`
	HTTPPort    string  `json:"http_port"`
	Serial      string  `json:"serial,omitempty"`
}

func buildOven(snap Snapshot) OvenJSON {
	st := snap.Oven
	phase := string(st.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	o := OvenJSON{
		Phase:         phase,
		ElapsedTicks:  st.Elapsed,
		DurationTicks: st.Duration,
		TargetC:       st.TargetC,
		SensorOK:      st.LastSample.Valid,
		Relay:         "OFF",
		RunID:         snap.RunID,
		Profile:       snap.Config.Profile,
	}
	if v := st.LastSample.ValueC; st.LastSample.Usable() {
		o.TempC = &v
	}
	if st.RelayOn {
		o.Relay = "ON"
	}
	if st.Fault != nil {
		o.Fault = st.Fault.Error()
	}
	return o
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Oven:          buildOven(snap),
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			RunsStarted:      snap.Counts.RunsStarted,
			RunsCompleted:    snap.Counts.RunsCompleted,
			RunsAborted:      snap.Counts.RunsAborted,
			RelaySwitches:    snap.Counts.RelaySwitches,
			SensorFaults:     snap.Counts.SensorFaults,
			RejectedCommands: snap.Counts.RejectedCommands,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			DisplayMs:   snap.Config.DisplayMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HysteresisC: snap.Config.HysteresisC,
			Profile:     snap.Config.Profile,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Serial:      snap.Config.Serial,
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

// Build returns the status envelope without event or reason.
// The websocket feed sends it as-is.
func Build(snap Snapshot) StatusJSON {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)
	return StatusJSON{Status: inner}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
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
