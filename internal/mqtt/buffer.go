package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable.
// A retained message replaces any older retained message on the same topic,
// since the broker would only keep the newest one anyway. Otherwise the
// oldest message is dropped when full.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i := range o.msgs {
			if o.msgs[i].retained && o.msgs[i].topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
		}
		o.dropped++
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
	}
	o.msgs = append(o.msgs, msg)
}

// drain returns queued messages oldest first and empties the outbox.
func (o *outbox) drain() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while offline", o.dropped)
		o.dropped = 0
	}
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
