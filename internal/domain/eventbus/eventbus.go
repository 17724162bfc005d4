package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Publisher is the producer side of a bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Subscriber is the consumer side of a bus.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
}

// New creates a synchronous event bus.
func New() evbus.Bus {
	return evbus.New()
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(string, ...interface{}) {}
