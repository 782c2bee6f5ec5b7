package mqtt

import (
	"sync"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// FakePublisher keeps every message it is given, already serialized, so tests
// can check both the event and the exact bytes that would reach the broker.
// Set PublishError or PublishSystemError to simulate a broker failure; a
// failed publish records nothing.
type FakePublisher struct {
	mu sync.Mutex

	Events   []logic.Event
	Payloads [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// EventTypes lists the recorded controller event types, oldest first.
func (f *FakePublisher) EventTypes() []logic.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]logic.EventType, 0, len(f.Events))
	for _, e := range f.Events {
		types = append(types, e.Type)
	}
	return types
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset returns the fake to its freshly constructed state.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events, f.Payloads = nil, nil
	f.SystemEvents, f.SystemPayloads = nil, nil
	f.PublishError, f.PublishSystemError = nil, nil
	f.Closed, f.Connected = false, false
}

var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
)
