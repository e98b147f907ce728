// Package appevents exposes host application events (language, region and
// font changes) as an events.Context.
package appevents

import (
	"sync"

	"sysbridge/internal/events"
)

// Context subscribes application triggers to a host event bus.
type Context struct {
	bus *events.Bus

	mu     sync.Mutex
	unsubs map[string]func()
}

func New(bus *events.Bus) *Context {
	return &Context{bus: bus, unsubs: make(map[string]func())}
}

var _ events.Context = (*Context)(nil)

func (c *Context) AddEventListener(event string, fire events.TriggerFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unsubs[event]; ok {
		return nil
	}
	c.unsubs[event] = c.bus.Subscribe(event, func(payload any) { fire(payload) })
	return nil
}

func (c *Context) RemoveEventListener(event string) {
	c.mu.Lock()
	unsub, ok := c.unsubs[event]
	delete(c.unsubs, event)
	c.mu.Unlock()
	if ok {
		unsub()
	}
}
