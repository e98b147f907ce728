package pps

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPollInterval = 500 * time.Millisecond

// Change is one notification for a watched object. Fields holds only the
// changed attributes unless Initial is set, in which case it is the whole
// object as first read.
type Change struct {
	Path    string
	Fields  Attrs
	Initial bool
}

// Handler receives changes. It runs on the watcher goroutine.
type Handler func(Change)

type subscription struct {
	id int
	fn Handler
}

// Watcher polls subscribed objects and emits attribute deltas, the file
// equivalent of opening an object with "?wait,delta".
type Watcher struct {
	store    *Store
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
	last   map[string]Attrs
}

// NewWatcher returns a Watcher over store. interval <= 0 uses the default.
func NewWatcher(store *Store, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		store:    store,
		interval: interval,
		log:      log,
		subs:     make(map[string][]subscription),
		last:     make(map[string]Attrs),
	}
}

// Subscribe registers fn for changes of the object at raw (options are
// dropped). The returned func removes the subscription; once an object has
// no subscribers its baseline is forgotten.
func (w *Watcher) Subscribe(raw string, fn Handler) func() {
	obj := ObjectPath(raw)
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs[obj] = append(w.subs[obj], subscription{id: id, fn: fn})
	w.mu.Unlock()
	return func() { w.unsubscribe(obj, id) }
}

func (w *Watcher) unsubscribe(obj string, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	subs := w.subs[obj]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(w.subs, obj)
		delete(w.last, obj)
		return
	}
	w.subs[obj] = subs
}

// Watched lists the object paths that currently have subscribers.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.subs))
	for k := range w.subs {
		out = append(out, k)
	}
	return out
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		w.Poll()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Poll reads every watched object once and dispatches changes. Handlers are
// called serially, outside the lock.
func (w *Watcher) Poll() {
	for _, obj := range w.Watched() {
		attrs, err := w.store.Attrs(obj)
		if err != nil {
			if !errors.Is(err, ErrNoObject) {
				w.log.Warn().Err(err).Str("path", obj).Msg("pps read failed")
			}
			continue
		}
		w.mu.Lock()
		prev, seen := w.last[obj]
		if _, ok := w.subs[obj]; ok {
			w.last[obj] = attrs
		}
		handlers := make([]Handler, 0, len(w.subs[obj]))
		for _, s := range w.subs[obj] {
			handlers = append(handlers, s.fn)
		}
		w.mu.Unlock()

		ch := Change{Path: obj, Initial: !seen}
		if seen {
			ch.Fields = delta(prev, attrs)
			if len(ch.Fields) == 0 {
				continue
			}
		} else {
			ch.Fields = attrs
		}
		w.log.Debug().Str("path", obj).Bool("initial", ch.Initial).Int("fields", len(ch.Fields)).Msg("pps change")
		for _, fn := range handlers {
			fn(ch)
		}
	}
}

// delta returns attributes of cur that are new or differ from prev.
func delta(prev, cur Attrs) Attrs {
	out := Attrs{}
	for k, v := range cur {
		if old, ok := prev[k]; !ok || old != v {
			out[k] = v
		}
	}
	return out
}
