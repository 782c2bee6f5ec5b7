// Package command collects Start/Abort requests from every input source and
// hands them to the control loop one per tick, strictly in arrival order.
package command

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// DefaultCapacity is the number of pending commands kept before the oldest is dropped.
const DefaultCapacity = 16

// ErrUnknownCommand is returned by Parse for text that is not a command.
var ErrUnknownCommand = errors.New("unknown command")

// Source is anything the control loop can poll for the next command.
type Source interface {
	// Poll returns the oldest pending command, or CommandNone.
	Poll() logic.Command
}

// Queue is a bounded FIFO, safe for concurrent Push from MQTT, HTTP and GPIO
// callbacks while the control loop polls.
type Queue struct {
	mu       sync.Mutex
	buf      []logic.Command
	capacity int
	head     int // oldest entry
	count    int
	overflow bool
}

// NewQueue creates a queue holding at most capacity commands.
// A non-positive capacity uses DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		buf:      make([]logic.Command, capacity),
		capacity: capacity,
	}
}

// Push appends cmd. When the queue is full the oldest command is dropped.
// CommandNone is ignored.
func (q *Queue) Push(cmd logic.Command) {
	if cmd == logic.CommandNone {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.capacity {
		if !q.overflow {
			log.Printf("command: queue full (%d), dropping oldest", q.capacity)
			q.overflow = true
		}
		q.buf[q.head] = cmd
		q.head = (q.head + 1) % q.capacity
		return
	}
	q.buf[(q.head+q.count)%q.capacity] = cmd
	q.count++
}

// Poll removes and returns the oldest command, or CommandNone if empty.
func (q *Queue) Poll() logic.Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return logic.CommandNone
	}
	cmd := q.buf[q.head]
	q.buf[q.head] = logic.CommandNone
	q.head = (q.head + 1) % q.capacity
	q.count--
	if q.count == 0 {
		q.overflow = false
	}
	return cmd
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Parse converts text such as "start" or " ABORT\n" into a command.
func Parse(s string) (logic.Command, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(logic.CommandStart):
		return logic.CommandStart, nil
	case string(logic.CommandAbort), "STOP":
		return logic.CommandAbort, nil
	default:
		return logic.CommandNone, fmt.Errorf("%q: %w", s, ErrUnknownCommand)
	}
}
