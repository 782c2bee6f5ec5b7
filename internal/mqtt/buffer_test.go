package mqtt

import (
	"testing"
)

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	if got := o.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxPushAndDrain(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		o.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}

	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if got2 := o.drain(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 8; i++ {
		o.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}

	if o.len() != 5 {
		t.Fatalf("expected len 5, got %d", o.len())
	}
	got := o.drain()
	for i, m := range got {
		if m.payload[0] != byte(i+3) {
			t.Errorf("item %d: expected payload %d, got %d", i, i+3, m.payload[0])
		}
	}
	if o.dropped != 0 {
		t.Errorf("drain should reset drop count, got %d", o.dropped)
	}
}

func TestOutboxRetainedReplacesOlder(t *testing.T) {
	o := newOutbox(10)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("startup-1"), qos: 1, retained: true})
	o.push(bufferedMsg{topic: Topic, payload: []byte("event")})
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("heartbeat"), qos: 1})
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("startup-2"), qos: 1, retained: true})

	got := o.drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	want := []string{"event", "heartbeat", "startup-2"}
	for i, w := range want {
		if string(got[i].payload) != w {
			t.Errorf("item %d: expected %s, got %s", i, w, got[i].payload)
		}
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got := o.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
