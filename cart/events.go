package cart

import "log"

// Cart lifecycle events.
const (
	EventAdded    = "cart.added"
	EventUpdated  = "cart.updated"
	EventRemoved  = "cart.removed"
	EventStored   = "cart.stored"
	EventRestored = "cart.restored"
)

// Payload is the event payload: the cart instance and subject, merged with
// any caller-supplied extra fields.
type Payload map[string]any

// Dispatcher receives cart events. Delivery is fire-and-forget; a failing
// dispatcher never rolls back the mutation that triggered it.
type Dispatcher interface {
	Dispatch(event string, payload Payload)
}

// LogDispatcher writes events to the standard logger.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(event string, payload Payload) {
	log.Printf("%s instance=%v", event, payload["cartInstance"])
}

// NopDispatcher discards events.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(string, Payload) {}

// dispatch shields cart mutations from a panicking dispatcher.
func (c *Cart) dispatch(event string, payload Payload) {
	if c.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cart: event %s delivery failed: %v", event, r)
		}
	}()
	c.events.Dispatch(event, payload)
}

func mergePayload(base Payload, extra []Payload) Payload {
	for _, e := range extra {
		for k, v := range e {
			base[k] = v
		}
	}
	return base
}
