package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/reflow-oven/internal/command"
	"github.com/sweeney/reflow-oven/internal/logic"
)

// OutboxCapacity bounds the messages held while the broker is unreachable.
const OutboxCapacity = 256

// RealPublisher publishes to an actual MQTT broker and listens for commands.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu            sync.Mutex
	outbox        *outbox
	connectedOnce bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// Commands received on TopicCommand are passed to onCommand; nil disables
// command intake.
func NewRealPublisher(broker string, onCommand func(logic.Command)) (*RealPublisher, error) {
	p := &RealPublisher{
		topic:  Topic,
		outbox: newOutbox(OutboxCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("reflow-oven").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c paho.Client) {
			if onCommand != nil {
				token := c.Subscribe(TopicCommand, 1, func(_ paho.Client, msg paho.Message) {
					if err := dispatchCommand(msg.Payload(), onCommand); err != nil {
						log.Printf("mqtt: %v", err)
					}
				})
				if token.WaitTimeout(5*time.Second) && token.Error() != nil {
					log.Printf("mqtt: subscribe %s: %v", TopicCommand, token.Error())
				}
			}
			p.flush(c)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// paho keeps retrying in the background; publishes queue in the outbox.
		log.Printf("mqtt: broker %s not reachable yet, retrying", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// dispatchCommand parses a command payload and hands it to onCommand.
func dispatchCommand(payload []byte, onCommand func(logic.Command)) error {
	cmd, err := command.Parse(string(payload))
	if err != nil {
		return fmt.Errorf("command topic: %w", err)
	}
	log.Printf("mqtt: received command %s", cmd)
	onCommand(cmd)
	return nil
}

// Publish sends a controller event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.topic, payload: payload, qos: 0})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// send publishes msg, or queues it in the outbox while disconnected.
func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.outbox.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays queued messages after a connect. RECONNECTED is only
// announced when an earlier connection existed.
func (p *RealPublisher) flush(c paho.Client) {
	p.mu.Lock()
	msgs := p.outbox.drain()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.mu.Unlock()

	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d queued messages", len(msgs))
	}
	for _, m := range msgs {
		// Don't block the paho callback goroutine waiting on acks.
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}

	if !reconnect {
		return
	}
	c.Publish(TopicSystem, 1, false, mustSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "RECONNECTED",
	}))
}

func mustSystemPayload(event SystemEvent) []byte {
	b, err := FormatSystemPayload(event)
	if err != nil {
		panic(err)
	}
	return b
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
