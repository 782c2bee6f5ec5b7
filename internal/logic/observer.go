package logic

import "time"

// Input is one controller tick as seen by the Observer.
type Input struct {
	Status  Status
	Command Command // command that was applied this tick
	Time    time.Time
}

// Observer compares consecutive controller statuses and reports changes.
type Observer struct {
	prev          Status
	baselined     bool
	runAborted    bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewObserver creates an observer. The startTime is used for calculating
// uptime in heartbeat events.
func NewObserver(startTime time.Time) *Observer {
	return &Observer{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the status after a tick and returns the events it implies.
// The first observation only establishes the baseline, except that a sensor
// fault already present at startup is reported.
func (o *Observer) Process(in Input) []Event {
	cur := in.Status

	if !o.baselined {
		o.prev = cur
		o.baselined = true
		if cur.Fault != nil {
			o.eventCounts.SensorFaults++
			return []Event{o.event(in, EventSensorFault)}
		}
		return nil
	}

	prev := o.prev
	o.prev = cur

	var events []Event

	// Order: rejected command, phase, sensor, relay.
	if cur.Rejected != CommandNone {
		o.eventCounts.RejectedCommands++
		e := o.event(in, EventCommandRejected)
		e.Command = cur.Rejected
		events = append(events, e)
	}

	if cur.Phase != prev.Phase {
		e := o.event(in, EventPhaseChange)
		e.From = prev.Phase
		events = append(events, e)
		o.countPhaseChange(prev.Phase, cur.Phase, in.Command)
	}

	if (cur.Fault != nil) != (prev.Fault != nil) {
		if cur.Fault != nil {
			o.eventCounts.SensorFaults++
			events = append(events, o.event(in, EventSensorFault))
		} else {
			events = append(events, o.event(in, EventSensorOK))
		}
	}

	if cur.RelayOn != prev.RelayOn {
		o.eventCounts.RelaySwitches++
		if cur.RelayOn {
			events = append(events, o.event(in, EventRelayOn))
		} else {
			events = append(events, o.event(in, EventRelayOff))
		}
	}

	return events
}

func (o *Observer) countPhaseChange(from, to Phase, cmd Command) {
	switch {
	case from == PhaseIdle && to == PhasePreheat:
		o.eventCounts.RunsStarted++
		o.runAborted = false
	case to == PhaseCooldown && cmd == CommandAbort:
		o.eventCounts.RunsAborted++
		o.runAborted = true
	case from == PhaseCooldown && to == PhaseIdle:
		if !o.runAborted {
			o.eventCounts.RunsCompleted++
		}
		o.runAborted = false
	}
}

func (o *Observer) event(in Input, t EventType) Event {
	s := in.Status
	return Event{
		Timestamp: in.Time,
		Type:      t,
		Phase:     s.Phase,
		TargetC:   s.TargetC,
		TempC:     s.LastSample.ValueC,
		Valid:     s.LastSample.Valid,
		RelayOn:   s.RelayOn,
	}
}

// IsBaselined returns whether at least one status has been observed.
func (o *Observer) IsBaselined() bool {
	return o.baselined
}

// EventCountsSnapshot returns a copy of the counters.
func (o *Observer) EventCountsSnapshot() EventCounts {
	return o.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (o *Observer) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !o.baselined {
		return nil
	}

	if now.Sub(o.lastHeartbeat) < interval {
		return nil
	}

	o.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(o.startTime),
		Counts:    o.eventCounts,
	}
}
