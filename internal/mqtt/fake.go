package mqtt

import (
	"github.com/sweeney/button-sensor/internal/logic"
)

// Message is one publish as the broker would receive it.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records publishes for test assertions. Messages are encoded
// exactly as RealPublisher encodes them, but nothing is buffered: the fake
// behaves like a publisher whose connection never drops.
type FakePublisher struct {
	// Instance is stamped on system events that carry none.
	Instance string

	// Events and SystemEvents hold what callers passed in, in order.
	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages holds every encoded publish, button and system, in order.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) record(msg bufferedMsg) {
	f.Messages = append(f.Messages, Message{
		Topic:    msg.topic,
		Payload:  msg.payload,
		QoS:      msg.qos,
		Retained: msg.retained,
	})
}

// Publish records the button event. Failed publishes are not recorded.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.record(msg)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := systemMessage(event, f.Instance)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.record(msg)
	return nil
}

// Topic returns the payloads published to topic, in order.
func (f *FakePublisher) Topic(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears everything, including injected errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
