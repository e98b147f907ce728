package events

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// TriggerFunc fires an application event with payload.
type TriggerFunc func(payload any)

// Context is an event source able to start and stop listening for one of
// its own events.
type Context interface {
	AddEventListener(event string, trigger TriggerFunc) error
	RemoveEventListener(event string)
}

// Action links an application event to the context that produces it.
// Event is the name the context knows it by.
type Action struct {
	Context Context
	Event   string
	Trigger TriggerFunc
}

// ActionMap maps application event names to their actions.
type ActionMap map[string]Action

// Registrar accepts an action map.
type Registrar interface {
	RegisterEvents(ActionMap) error
}

type unknownEventError struct{ name string }

func (e unknownEventError) Error() string { return "event not registered: " + e.name }

// IsUnknownEvent reports whether err is returned for an event that was never
// registered.
func IsUnknownEvent(err error) bool {
	_, ok := err.(unknownEventError)
	return ok
}

// Subsystem holds the registered action map and reference counts
// listeners: the first Add starts the context listener, the last Remove
// stops it.
type Subsystem struct {
	mu        sync.Mutex
	actions   ActionMap
	listeners map[string]int
	log       zerolog.Logger
}

func NewSubsystem(log zerolog.Logger) *Subsystem {
	return &Subsystem{actions: ActionMap{}, listeners: map[string]int{}, log: log}
}

// RegisterEvents merges m into the registered actions. Re-registering an
// event that has listeners keeps them on the old action.
func (s *Subsystem) RegisterEvents(m ActionMap) error {
	for name, a := range m {
		if a.Context == nil {
			return fmt.Errorf("event %s: nil context", name)
		}
		if a.Trigger == nil {
			return fmt.Errorf("event %s: nil trigger", name)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, a := range m {
		if s.listeners[name] > 0 {
			continue
		}
		s.actions[name] = a
	}
	s.log.Debug().Int("count", len(m)).Msg("events registered")
	return nil
}

// Add starts listening for name, or adds a reference if already listening.
func (s *Subsystem) Add(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[name]
	if !ok {
		return unknownEventError{name: name}
	}
	if s.listeners[name] == 0 {
		if err := a.Context.AddEventListener(a.Event, a.Trigger); err != nil {
			return fmt.Errorf("add listener %s: %w", name, err)
		}
		s.log.Info().Str("event", name).Msg("listening")
	}
	s.listeners[name]++
	return nil
}

// Remove drops one reference; the listener stops when none remain.
func (s *Subsystem) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.listeners[name]
	if n == 0 {
		return
	}
	if n > 1 {
		s.listeners[name] = n - 1
		return
	}
	delete(s.listeners, name)
	a := s.actions[name]
	a.Context.RemoveEventListener(a.Event)
	s.log.Info().Str("event", name).Msg("stopped listening")
}

// Registered lists the registered event names, sorted.
func (s *Subsystem) Registered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.actions))
	for k := range s.actions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Listeners returns the reference count for name.
func (s *Subsystem) Listeners(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners[name]
}

// Close stops every active listener.
func (s *Subsystem) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.listeners {
		a := s.actions[name]
		a.Context.RemoveEventListener(a.Event)
	}
	s.listeners = map[string]int{}
}
