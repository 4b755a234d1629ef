package purchase

import "sync"

// subscriberBufferSize bounds each subscriber's ring buffer. Purchase events
// are idempotent to re-query, so dropping the oldest under a slow consumer
// is acceptable.
const subscriberBufferSize = 64

// Bus is a multi-consumer broadcast channel. Publishes preserve arrival
// order, never block on slow consumers, and reach only subscribers that were
// registered before the publish.
type Bus[E any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[E]
	nextID uint64
	closed bool
}

// Subscription is one consumer's view of a Bus. Events arrive on C; the
// channel is closed when the subscription is cancelled or the bus closes.
type Subscription[E any] struct {
	bus *Bus[E]
	id  uint64
	ch  chan E
}

func (s *Subscription[E]) C() <-chan E {
	return s.ch
}

// Cancel detaches the subscription and closes its channel. Idempotent.
func (s *Subscription[E]) Cancel() {
	s.bus.cancel(s.id)
}

func NewBus[E any]() *Bus[E] {
	return &Bus[E]{
		subs: make(map[uint64]*Subscription[E]),
	}
}

func (b *Bus[E]) Subscribe() *Subscription[E] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[E]{
		bus: b,
		id:  b.nextID,
		ch:  make(chan E, subscriberBufferSize),
	}
	if b.closed {
		close(sub.ch)
		return sub
	}

	b.nextID++
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers e to every current subscriber. A full subscriber buffer
// drops its oldest event to make room.
func (b *Bus[E]) Publish(e E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- e:
			default:
			}
		}
	}
}

// Close terminates the bus, closing every subscriber channel to signal
// session end. Publishes after Close are dropped.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (b *Bus[E]) cancel(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}
