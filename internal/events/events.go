package events

import "sync"

// Event is a named application event and its payload.
type Event struct {
	Name    string
	Payload any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the names of the stored events in order.
func (p *MemoryPublisher) Names() []string {
	evts := p.Events()
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Name
	}
	return out
}

// Bus is a subscribe/trigger-by-name event bus. It is a Publisher: Publish
// calls every handler subscribed to the event name, in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]busSub
}

type busSub struct {
	id int
	fn func(payload any)
}

func NewBus() *Bus { return &Bus{subs: make(map[string][]busSub)} }

// Subscribe calls fn for every event published under name. The returned
// func unsubscribes.
func (b *Bus) Subscribe(name string, fn func(payload any)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], busSub{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[name]
		for i, s := range subs {
			if s.id == id {
				b.subs[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// Publish delivers e synchronously. Handlers run outside the lock and may
// subscribe or unsubscribe.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := append([]busSub(nil), b.subs[e.Name]...)
	b.mu.Unlock()
	for _, s := range subs {
		s.fn(e.Payload)
	}
}

// Trigger is shorthand for Publish(Event{name, payload}).
func (b *Bus) Trigger(name string, payload any) { b.Publish(Event{Name: name, Payload: payload}) }

// Subscribers reports how many handlers are subscribed to name.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}
