// Command reflow-oven runs a reflow soldering profile on a toaster oven: it
// reads a MAX6675 thermocouple, switches the heater relay and publishes state
// changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sweeney/reflow-oven/internal/command"
	"github.com/sweeney/reflow-oven/internal/gpio"
	"github.com/sweeney/reflow-oven/internal/logic"
	"github.com/sweeney/reflow-oven/internal/mqtt"
	"github.com/sweeney/reflow-oven/internal/profile"
	"github.com/sweeney/reflow-oven/internal/status"
	"github.com/sweeney/reflow-oven/internal/telemetry"
	"github.com/sweeney/reflow-oven/internal/web"
)

type config struct {
	tick      time.Duration
	display   time.Duration
	profiles  string
	profile   string
	broker    string
	heartbeat time.Duration
	httpAddr  string
	serial    string
	baud      int
	pins      gpio.Pins
	envFile   string
	printTemp bool
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.tick, "tick", time.Second, "Control tick interval")
	flag.DurationVar(&cfg.display, "display", web.DefaultDisplayInterval, "Websocket status push interval")
	flag.StringVar(&cfg.profiles, "profiles", "/etc/reflow-oven/profiles.yaml", "Profile library file (built-in presets if missing)")
	flag.StringVar(&cfg.profile, "profile", "", "Profile name (empty uses the library's selected profile)")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&cfg.serial, "serial", "", "Serial port for CSV telemetry (empty to disable)")
	flag.IntVar(&cfg.baud, "baud", telemetry.DefaultBaudRate, "Serial telemetry baud rate")
	flag.IntVar(&cfg.pins.Relay, "pin-relay", gpio.DefaultPinRelay, "BCM pin number for the heater relay")
	flag.IntVar(&cfg.pins.CLK, "pin-clk", gpio.DefaultPinCLK, "BCM pin number for MAX6675 SCK")
	flag.IntVar(&cfg.pins.CS, "pin-cs", gpio.DefaultPinCS, "BCM pin number for MAX6675 CS")
	flag.IntVar(&cfg.pins.DO, "pin-do", gpio.DefaultPinDO, "BCM pin number for MAX6675 SO")
	flag.IntVar(&cfg.pins.Start, "pin-start", gpio.DefaultPinStart, "BCM pin number for the start button (0 to disable)")
	flag.IntVar(&cfg.pins.Abort, "pin-abort", gpio.DefaultPinAbort, "BCM pin number for the abort button (0 to disable)")
	flag.StringVar(&cfg.envFile, "env-file", "/run/pi-helper.env", "Environment file with network info")
	flag.BoolVar(&cfg.printTemp, "print-temp", false, "Print the current temperature and exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	loadEnvFile(cfg.envFile)

	lib, err := profile.Load(cfg.profiles)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	prof, err := lib.Compile(cfg.profile, cfg.tick)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	// Thermocouple probe. A bus error here means wiring or permissions are
	// wrong; refuse to start rather than heat blind.
	therm, err := gpio.NewRealThermocouple(cfg.pins.CLK, cfg.pins.CS, cfg.pins.DO)
	if err != nil {
		return fmt.Errorf("init thermocouple: %w", err)
	}
	defer therm.Close()

	sample, err := therm.Read()
	if err != nil {
		return fmt.Errorf("read thermocouple: %w", err)
	}

	if cfg.printTemp {
		fmt.Println(formatSample(sample))
		return nil
	}
	if !sample.Valid {
		log.Printf("gpio: thermocouple reports no valid temperature; heater stays off until it does")
	}

	relay, err := gpio.NewRealRelay(cfg.pins.Relay)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relay.Close()
	if err := relay.Set(false); err != nil {
		return fmt.Errorf("write relay off: %w", err)
	}

	queue := command.NewQueue(command.DefaultCapacity)

	if cfg.pins.Start != 0 || cfg.pins.Abort != 0 {
		buttons, err := gpio.NewRealButtons(cfg.pins.Start, cfg.pins.Abort, queue.Push)
		if err != nil {
			log.Printf("gpio: buttons disabled: %v", err)
		} else {
			defer buttons.Close()
		}
	}

	broker, err := mqtt.NewRealPublisher(cfg.broker, queue.Push)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	// Broker round trips happen off the control goroutine.
	publisher := mqtt.NewAsyncPublisher(broker, mqtt.AsyncQueueCapacity)
	defer publisher.Close()

	var tw *telemetry.Writer
	if cfg.serial != "" {
		port, err := telemetry.OpenSerial(cfg.serial, cfg.baud)
		if err != nil {
			log.Printf("telemetry: disabled: %v", err)
		} else {
			defer port.Close()
			tw = telemetry.NewWriter(port)
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.tick.Milliseconds(),
		DisplayMs:   cfg.display.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		HysteresisC: lib.HysteresisC,
		Profile:     prof.Name,
		Broker:      cfg.broker,
		HTTPPort:    cfg.httpAddr,
		Serial:      cfg.serial,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to queue startup event: %v", err)
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, queue, cfg.display)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: profile=%s tick=%v hysteresis=%.2f broker=%s heartbeat=%v",
		prof.Name, cfg.tick, lib.HysteresisC, cfg.broker, cfg.heartbeat)

	ticker := time.NewTicker(cfg.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	o := &oven{
		ctrl:       logic.NewController(prof, lib.HysteresisC),
		therm:      therm,
		relay:      relay,
		commands:   queue,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		telemetry:  tw,
		heartbeat:  cfg.heartbeat,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	return o.runLoop(ticker.C, sigCh)
}

// oven wires the controller to its collaborators. Only runLoop's goroutine
// touches it.
type oven struct {
	ctrl       *logic.Controller
	therm      gpio.Thermocouple
	relay      gpio.Relay
	commands   command.Source
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	telemetry  *telemetry.Writer     // may be nil
	heartbeat  time.Duration
	now        func() time.Time
	newRunID   func() string

	observer        *logic.Observer
	runID           string
	relayWritten    bool // last state successfully written to the relay
	telemetryFailed bool
}

func (o *oven) runLoop(tick <-chan time.Time, sig <-chan os.Signal) error {
	o.observer = logic.NewObserver(o.now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			o.shutdown(signalName(s))
			return nil

		case <-tick:
			o.step(o.now())
		}
	}
}

// step runs one control tick: one command, one sensor read, one controller
// step, then the relay write and reporting.
func (o *oven) step(t time.Time) {
	cmd := o.commands.Poll()

	sample, err := o.therm.Read()
	if err != nil {
		log.Printf("gpio: thermocouple read error: %v", err)
		sample = logic.InvalidSample
	}

	prevPhase := o.ctrl.Status().Phase
	st := o.ctrl.Step(cmd, sample)
	if prevPhase == logic.PhaseIdle && st.Phase == logic.PhasePreheat {
		o.runID = o.newRunID()
		log.Printf("run %s started", o.runID)
	}

	o.writeRelay(st.RelayOn)
	o.report(t, st, cmd)

	if st.Phase == logic.PhaseIdle {
		o.runID = ""
	}

	if !o.observer.IsBaselined() {
		return
	}

	if hbData := o.observer.CheckHeartbeat(t, o.heartbeat); hbData != nil {
		o.publishHeartbeat(hbData, st)
	}
}

// writeRelay drives the relay when the desired state differs from the last
// successful write. A failed write is retried on the next tick.
func (o *oven) writeRelay(on bool) {
	if on == o.relayWritten {
		return
	}
	if err := o.relay.Set(on); err != nil {
		log.Printf("gpio: relay write error: %v", err)
		return
	}
	o.relayWritten = on
}

// report turns the tick's status into events, telemetry and tracker state.
func (o *oven) report(t time.Time, st logic.Status, cmd logic.Command) {
	events := o.observer.Process(logic.Input{Status: st, Command: cmd, Time: t})
	for _, event := range events {
		event.RunID = o.runID
		logEvent(event)
		if err := o.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	if o.telemetry != nil {
		if err := o.telemetry.Record(t, st); err != nil {
			if !o.telemetryFailed {
				log.Printf("telemetry: %v", err)
			}
			o.telemetryFailed = true
		} else {
			o.telemetryFailed = false
		}
	}

	// Update status tracker for HTTP/websocket consumers
	if o.tracker != nil {
		o.tracker.Update(st, o.runID, o.observer.IsBaselined(), o.observer.EventCountsSnapshot())
		if o.mqttStatus != nil {
			o.tracker.SetMQTTConnected(o.mqttStatus.IsConnected())
		}
	}
}

func (o *oven) publishHeartbeat(hb *logic.HeartbeatData, st logic.Status) {
	log.Printf("heartbeat: uptime=%v phase=%s runs=%d/%d/%d relay_switches=%d faults=%d",
		hb.Uptime, st.Phase, hb.Counts.RunsStarted, hb.Counts.RunsCompleted, hb.Counts.RunsAborted,
		hb.Counts.RelaySwitches, hb.Counts.SensorFaults)

	hbEvent := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if o.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			o.tracker.SetNetwork(net)
		}
		snap := o.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := o.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// shutdown forces the heater off before anything else, then reports.
func (o *oven) shutdown(reason string) {
	st := o.ctrl.ForceOff()
	if err := o.relay.Set(false); err != nil {
		log.Printf("gpio: relay write error during shutdown: %v", err)
	} else {
		o.relayWritten = false
	}

	t := o.now()
	if o.observer.IsBaselined() {
		o.report(t, st, logic.CommandNone)
	}

	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if o.tracker != nil {
		if o.mqttStatus != nil {
			o.tracker.SetMQTTConnected(o.mqttStatus.IsConnected())
		}
		snap := o.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := o.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to queue shutdown event: %v", err)
	}
}

func logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventPhaseChange:
		log.Printf("event: %s %s -> %s (target=%.2f temp=%s)", e.Type, e.From, e.Phase, e.TargetC, formatTemp(e.TempC, e.Valid))
	case logic.EventCommandRejected:
		log.Printf("command: %s rejected in %s", e.Command, e.Phase)
	default:
		log.Printf("event: %s (phase=%s target=%.2f temp=%s)", e.Type, e.Phase, e.TargetC, formatTemp(e.TempC, e.Valid))
	}
}

func formatTemp(v float64, valid bool) string {
	if !valid {
		return "FAULT"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatSample(s logic.SensorSample) string {
	if !s.Valid {
		return "temperature: FAULT (open thermocouple or out of range)"
	}
	return fmt.Sprintf("temperature: %.2f °C", s.ValueC)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// loadEnvFile loads pi-helper's env file into the process environment.
// Variables already set win. A missing file is normal off the Pi.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env: %v", err)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
