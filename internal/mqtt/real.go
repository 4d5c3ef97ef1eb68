package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/button-sensor/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// bufferCapacity bounds the messages held while disconnected.
	bufferCapacity = 256
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are buffered and replayed
// in order once it comes back.
type RealPublisher struct {
	client   paho.Client
	instance string

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
	replaying     bool
}

// NewRealPublisher creates a publisher for the given broker. The broker does
// not have to be reachable yet: the client keeps retrying in the background
// and events are buffered meanwhile.
func NewRealPublisher(broker, clientID, instance string) (*RealPublisher, error) {
	p := newPublisher(nil, instance)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(willPayload(instance)), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(client paho.Client, instance string) *RealPublisher {
	return &RealPublisher{
		client:   client,
		instance: instance,
		buffer:   newRingBuffer(bufferCapacity),
	}
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := systemMessage(event, p.instance)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// eventMessage encodes a button event: QoS 0 (at-most-once), not retained.
func eventMessage(event logic.Event) (bufferedMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return bufferedMsg{}, fmt.Errorf("format payload: %w", err)
	}
	return bufferedMsg{topic: EventTopic(event.Button), payload: payload}, nil
}

// systemMessage encodes a lifecycle event at QoS 1 (at-least-once), stamping
// instance when the event carries none.
func systemMessage(event SystemEvent, instance string) (bufferedMsg, error) {
	if event.Instance == "" {
		event.Instance = instance
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return bufferedMsg{}, fmt.Errorf("format system payload: %w", err)
	}
	return bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, nil
}

// send publishes msg, or buffers it while the connection is down or a replay
// is in progress so that live messages never overtake buffered ones.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect runs on every successful (re)connection. paho calls it on its
// own goroutine. A reconnect is announced with RECONNECTED before the
// buffered messages are replayed oldest first.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	p.replaying = true
	pending, dropped := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d buffered messages (%d dropped)", len(pending), dropped)
		msg, err := systemMessage(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}, p.instance)
		if err == nil {
			err = p.publish(msg)
		}
		if err != nil {
			log.Printf("mqtt: reconnected event: %v", err)
		}
	} else if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}

	p.replay(pending)
}

// replay publishes pending, then anything buffered meanwhile, until the
// buffer is empty. If the connection drops mid-replay the unsent messages go
// back to the buffer for the next connection.
func (p *RealPublisher) replay(pending []bufferedMsg) {
	for {
		for i, msg := range pending {
			if !p.client.IsConnectionOpen() {
				p.mu.Lock()
				p.requeue(pending[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
			if err := p.publish(msg); err != nil {
				log.Printf("mqtt: replay: %v", err)
			}
		}

		p.mu.Lock()
		pending, _ = p.buffer.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// requeue puts unsent messages back ahead of anything buffered since.
// Caller holds p.mu.
func (p *RealPublisher) requeue(unsent []bufferedMsg) {
	later, _ := p.buffer.drainAll()
	for _, msg := range unsent {
		p.buffer.push(msg)
	}
	for _, msg := range later {
		p.buffer.push(msg)
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
