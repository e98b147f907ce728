package trigger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"sysbridge/internal/pps"
)

// Firing is an event the evaluator decided to fire.
type Firing struct {
	Event   string
	Payload map[string]any
}

// fieldState is the per-field memory, one per FieldSpec of the table.
type fieldState struct {
	spec FieldSpec
	last lastValue
}

type sourceState struct {
	object          string
	disableOnChange bool
	fields          []*fieldState
}

type eventState struct {
	name    string
	sources []*sourceState
	current map[string]any
}

// Evaluator decides, per property change, which events fire and with what
// payload. All mutable state lives here; construct one per process.
type Evaluator struct {
	mu     sync.Mutex
	events map[string]*eventState
	order  []string
	log    zerolog.Logger
}

// NewEvaluator builds the per-field state for every definition in table.
func NewEvaluator(table []EventDefinition, log zerolog.Logger) (*Evaluator, error) {
	e := &Evaluator{events: make(map[string]*eventState), log: log}
	for _, def := range table {
		if def.Name == "" {
			return nil, errors.New("event definition without a name")
		}
		if _, dup := e.events[def.Name]; dup {
			return nil, fmt.Errorf("duplicate event definition %q", def.Name)
		}
		es := &eventState{name: def.Name, current: make(map[string]any)}
		for _, src := range def.Sources {
			p, err := pps.ParsePath(src.Path)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", def.Name, err)
			}
			ss := &sourceState{object: p.Object, disableOnChange: src.DisableOnChange}
			for _, f := range src.Fields {
				if f.Format == nil {
					return nil, fmt.Errorf("event %s: field %s has no formatter", def.Name, f.Source)
				}
				ss.fields = append(ss.fields, &fieldState{spec: f})
			}
			es.sources = append(es.sources, ss)
		}
		e.events[def.Name] = es
		e.order = append(e.order, def.Name)
	}
	return e, nil
}

// Events lists the event names in table order.
func (e *Evaluator) Events() []string { return append([]string(nil), e.order...) }

// Paths lists the distinct object paths watched by event name.
func (e *Evaluator) Paths(name string) []string {
	es, ok := e.events[name]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range es.sources {
		if !seen[s.object] {
			seen[s.object] = true
			out = append(out, s.object)
		}
	}
	sort.Strings(out)
	return out
}

// Evaluate runs every event against one change. Fields that fail to format
// are skipped and reported in the joined error; firings decided by the
// remaining fields are still returned.
func (e *Evaluator) Evaluate(path string, fields pps.Attrs) ([]Firing, error) {
	var out []Firing
	var errs []error
	for _, name := range e.order {
		f, ok, err := e.EvaluateEvent(name, path, fields)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, errors.Join(errs...)
}

// EvaluateEvent runs a single event against one change. An event fires at
// most once per change.
func (e *Evaluator) EvaluateEvent(name, path string, fields pps.Attrs) (Firing, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	es, ok := e.events[name]
	if !ok {
		return Firing{}, false, fmt.Errorf("unknown event %q", name)
	}
	obj := pps.ObjectPath(path)
	fire := false
	var errs []error
	for _, src := range es.sources {
		if src.object != obj {
			continue
		}
		for _, fs := range src.fields {
			raw, ok := fields[fs.spec.Source]
			if !ok {
				continue
			}
			v, err := fs.spec.Format(raw)
			if err != nil {
				e.log.Warn().Err(err).Str("event", name).Str("field", fs.spec.Source).Msg("skipping unformattable value")
				errs = append(errs, fmt.Errorf("%s.%s: %w", name, fs.spec.Source, err))
				continue
			}
			es.current[fs.spec.Param] = v
			if src.disableOnChange {
				continue
			}
			if fs.spec.Suppress == nil || !fs.skip(raw, v) {
				fire = true
			}
		}
	}
	if !fire {
		if len(errs) == 0 && touches(es, obj) {
			suppressedTotal.WithLabelValues(name).Inc()
		}
		return Firing{}, false, errors.Join(errs...)
	}
	firedTotal.WithLabelValues(name).Inc()
	payload := make(map[string]any, len(es.current))
	for k, v := range es.current {
		payload[k] = v
	}
	return Firing{Event: name, Payload: payload}, true, errors.Join(errs...)
}

// skip reports whether firing is suppressed and records the new value.
// Suppressed when the level is above the limit, or the previous reading
// was already at or below it.
func (fs *fieldState) skip(raw string, v any) bool {
	n, _ := v.(int)
	th := fs.spec.Suppress
	result := n > th.Limit || fs.last.atOrBelow(th.Limit)
	if th.Store == StoreRaw {
		fs.last = rawValue(raw)
	} else {
		fs.last = formattedValue(n)
	}
	return result
}

// Prime seeds state from a full read of path without firing. Empty values
// leave the field unset; unformattable ones are stored as "no reading".
func (e *Evaluator) Prime(name, path string, fields pps.Attrs) {
	e.mu.Lock()
	defer e.mu.Unlock()
	es, ok := e.events[name]
	if !ok {
		return
	}
	obj := pps.ObjectPath(path)
	for _, src := range es.sources {
		if src.object != obj {
			continue
		}
		for _, fs := range src.fields {
			raw, ok := fields[fs.spec.Source]
			if !ok {
				continue
			}
			v, err := fs.spec.Format(raw)
			if err == nil {
				es.current[fs.spec.Param] = v
			}
			if fs.spec.Suppress == nil || raw == "" {
				continue
			}
			if n, isInt := v.(int); err == nil && isInt {
				fs.last = formattedValue(n)
			} else {
				fs.last = lastValue{}
			}
		}
	}
}

// Reset forgets the last values of event name.
func (e *Evaluator) Reset(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	es, ok := e.events[name]
	if !ok {
		return
	}
	for _, src := range es.sources {
		for _, fs := range src.fields {
			fs.last = lastValue{}
		}
	}
}

func touches(es *eventState, obj string) bool {
	for _, s := range es.sources {
		if s.object == obj {
			return true
		}
	}
	return false
}
