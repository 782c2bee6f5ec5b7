package mqtt

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// AsyncQueueCapacity bounds the messages waiting for the background sender.
const AsyncQueueCapacity = 64

// DrainTimeout bounds how long Close waits for queued messages.
const DrainTimeout = 5 * time.Second

// ErrQueueFull is returned when the background sender has fallen behind.
var ErrQueueFull = errors.New("publish queue full")

// ErrClosed is returned for publishes after Close.
var ErrClosed = errors.New("publisher closed")

type asyncMsg struct {
	event  *logic.Event
	system *SystemEvent
}

// AsyncPublisher queues messages for a background goroutine that hands them
// to the wrapped publisher. Publish and PublishSystem never block on the
// broker; they fail with ErrQueueFull instead.
type AsyncPublisher struct {
	next  Publisher
	queue chan asyncMsg
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncPublisher starts the background sender for next.
func NewAsyncPublisher(next Publisher, capacity int) *AsyncPublisher {
	if capacity <= 0 {
		capacity = AsyncQueueCapacity
	}
	a := &AsyncPublisher{
		next:  next,
		queue: make(chan asyncMsg, capacity),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncPublisher) loop() {
	defer close(a.done)
	for m := range a.queue {
		var err error
		if m.event != nil {
			err = a.next.Publish(*m.event)
		} else {
			err = a.next.PublishSystem(*m.system)
		}
		if err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
}

func (a *AsyncPublisher) enqueue(m asyncMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish queues a controller event.
func (a *AsyncPublisher) Publish(event logic.Event) error {
	return a.enqueue(asyncMsg{event: &event})
}

// PublishSystem queues a system lifecycle event.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.enqueue(asyncMsg{system: &event})
}

// IsConnected forwards to the wrapped publisher when it reports connection state.
func (a *AsyncPublisher) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close stops accepting messages, waits up to DrainTimeout for the queue to
// empty and then closes the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(DrainTimeout):
		log.Printf("mqtt: %d queued messages not sent before close", len(a.queue))
	}
	return a.next.Close()
}

var (
	_ Publisher        = (*AsyncPublisher)(nil)
	_ ConnectionStatus = (*AsyncPublisher)(nil)
)
