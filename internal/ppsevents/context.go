// Package ppsevents binds the trigger evaluator to the property-store
// watcher as an events.Context.
package ppsevents

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/internal/pps"
	"sysbridge/internal/trigger"
)

type listener struct {
	trigger events.TriggerFunc
	cancels []func()
}

// Context starts and stops watching the sources of one trigger event.
type Context struct {
	store   *pps.Store
	watcher *pps.Watcher
	eval    *trigger.Evaluator
	log     zerolog.Logger

	mu     sync.Mutex
	active map[string]*listener
}

func New(store *pps.Store, watcher *pps.Watcher, eval *trigger.Evaluator, log zerolog.Logger) *Context {
	return &Context{
		store:   store,
		watcher: watcher,
		eval:    eval,
		log:     log,
		active:  make(map[string]*listener),
	}
}

var _ events.Context = (*Context)(nil)

// AddEventListener primes the event from the current object contents and
// subscribes to each of its sources.
func (c *Context) AddEventListener(event string, fire events.TriggerFunc) error {
	paths := c.eval.Paths(event)
	if len(paths) == 0 {
		return fmt.Errorf("no trigger definition for %q", event)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[event]; ok {
		return nil
	}
	c.eval.Reset(event)
	l := &listener{trigger: fire}
	for _, p := range paths {
		attrs, err := c.store.Attrs(p)
		switch {
		case err == nil:
			c.eval.Prime(event, p, attrs)
		case errors.Is(err, pps.ErrNoObject):
		default:
			c.log.Warn().Err(err).Str("event", event).Str("path", p).Msg("prime failed")
		}
		path := p
		l.cancels = append(l.cancels, c.watcher.Subscribe(path, func(ch pps.Change) { c.handle(event, ch) }))
	}
	c.active[event] = l
	return nil
}

// RemoveEventListener unsubscribes and forgets the event's last values.
func (c *Context) RemoveEventListener(event string) {
	c.mu.Lock()
	l, ok := c.active[event]
	delete(c.active, event)
	c.mu.Unlock()
	if !ok {
		return
	}
	for _, cancel := range l.cancels {
		cancel()
	}
	c.eval.Reset(event)
}

func (c *Context) handle(event string, ch pps.Change) {
	c.mu.Lock()
	l, ok := c.active[event]
	c.mu.Unlock()
	if !ok {
		return
	}
	if ch.Initial {
		c.eval.Prime(event, ch.Path, ch.Fields)
		return
	}
	f, fired, err := c.eval.EvaluateEvent(event, ch.Path, ch.Fields)
	if err != nil {
		c.log.Warn().Err(err).Str("event", event).Str("path", ch.Path).Msg("evaluate")
	}
	if !fired {
		return
	}
	c.log.Debug().Str("event", event).Interface("payload", f.Payload).Msg("fire")
	l.trigger(f.Payload)
}
