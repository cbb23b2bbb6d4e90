package events

import "sync"

// DefaultSubscriptionBuffer is the number of undelivered events a subscription keeps before the
// oldest one is dropped.
const DefaultSubscriptionBuffer = 8

// WindowID identifies the window an event originated from.
type WindowID uint32

// ResizeEvent reports a new framebuffer size for a window.
type ResizeEvent struct {
	Window WindowID
	Width  uint32
	Height uint32
}

// Subscription is a buffered stream of resize events. When the buffer is full the oldest event
// is dropped, so a slow reader always observes the most recent sizes.
type Subscription struct {
	ch     chan ResizeEvent
	closed bool
}

// Events returns the receive side of the subscription. It is closed by Bus.Unsubscribe.
func (s *Subscription) Events() <-chan ResizeEvent {
	return s.ch
}

// Latest drains every pending event and returns the most recent one for window.
//
// Parameters:
//   - window: the window to match
//
// Returns:
//   - ResizeEvent: the latest matching event
//   - bool: false if no pending event matched
func (s *Subscription) Latest(window WindowID) (ResizeEvent, bool) {
	var latest ResizeEvent
	found := false
	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				return latest, found
			}
			if e.Window == window {
				latest, found = e, true
			}
		default:
			return latest, found
		}
	}
}

// bus is the implementation of the Bus interface.
type bus struct {
	mu     *sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

// Bus fans resize events out to every subscriber without ever blocking the publisher.
// All methods are safe for concurrent use.
type Bus interface {
	// Subscribe registers a new subscription.
	//
	// Returns:
	//   - *Subscription: the subscription
	Subscribe() *Subscription

	// Unsubscribe removes a subscription and closes its channel. Unknown or already removed
	// subscriptions are ignored.
	//
	// Parameters:
	//   - s: the subscription to remove
	Unsubscribe(s *Subscription)

	// Publish delivers e to every subscriber, dropping each subscriber's oldest pending event if
	// its buffer is full.
	//
	// Parameters:
	//   - e: the event to publish
	Publish(e ResizeEvent)

	// Subscribers returns the number of active subscriptions.
	Subscribers() int
}

var _ Bus = &bus{}

// BusBuilderOption is a functional option applied to a bus during construction via NewBus.
type BusBuilderOption func(*bus)

// WithSubscriptionBuffer sets the per-subscription buffer size. Values below 1 are ignored.
//
// Parameters:
//   - n: the buffer size
//
// Returns:
//   - BusBuilderOption: a function that applies the buffer size to a bus
func WithSubscriptionBuffer(n int) BusBuilderOption {
	return func(b *bus) {
		if n >= 1 {
			b.buffer = n
		}
	}
}

// NewBus creates an empty Bus.
//
// Parameters:
//   - opts: optional BusBuilderOption functions
//
// Returns:
//   - Bus: the new bus
func NewBus(opts ...BusBuilderOption) Bus {
	b := &bus{
		mu:     &sync.Mutex{},
		subs:   make(map[*Subscription]struct{}),
		buffer: DefaultSubscriptionBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan ResizeEvent, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[s] = struct{}{}
	return s
}

func (b *bus) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s]; !ok || s.closed {
		return
	}
	delete(b.subs, s)
	s.closed = true
	close(s.ch)
}

func (b *bus) Publish(e ResizeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- e:
			continue
		default:
		}
		// Publish holds the lock, so nothing can refill the buffer between the drop and the send.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (b *bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
