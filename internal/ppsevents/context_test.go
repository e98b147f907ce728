package ppsevents

import (
	"io"
	"testing"

	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/internal/pps"
	"sysbridge/internal/trigger"
)

type fixture struct {
	store *pps.Store
	w     *pps.Watcher
	ctx   *Context
	got   []map[string]any
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.New(io.Discard)
	store, err := pps.NewStore(t.TempDir())
	if err != nil { t.Fatalf("store: %v", err) }
	eval, err := trigger.NewEvaluator(trigger.DefaultTable(), log)
	if err != nil { t.Fatalf("evaluator: %v", err) }
	w := pps.NewWatcher(store, 0, log)
	return &fixture{store: store, w: w, ctx: New(store, w, eval, log)}
}

func (f *fixture) set(t *testing.T, path string, attrs pps.Attrs) {
	t.Helper()
	if err := f.store.Write(path, attrs); err != nil { t.Fatalf("write: %v", err) }
	f.w.Poll()
}

func (f *fixture) fire(p any) { f.got = append(f.got, p.(map[string]any)) }

func TestBatteryCritical_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "10"})
	f.set(t, trigger.ChargerPath, pps.Attrs{"ChargingState": "NC"})

	if err := f.ctx.AddEventListener(trigger.EventBatteryCritical, f.fire); err != nil {
		t.Fatalf("add: %v", err)
	}
	f.w.Poll() // initial read primes
	if len(f.got) != 0 { t.Fatalf("fired on initial read: %v", f.got) }

	f.set(t, trigger.ChargerPath, pps.Attrs{"ChargingState": "CC"})
	if len(f.got) != 0 { t.Fatalf("fired on charger change: %v", f.got) }

	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "3"})
	if len(f.got) != 1 { t.Fatalf("expected one firing, got %v", f.got) }
	if f.got[0]["level"] != 3 || f.got[0]["isPlugged"] != true {
		t.Fatalf("payload=%v", f.got[0])
	}
	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "2"})
	if len(f.got) != 1 { t.Fatalf("fired again below threshold: %v", f.got) }

	f.ctx.RemoveEventListener(trigger.EventBatteryCritical)
	if n := len(f.w.Watched()); n != 0 { t.Fatalf("still watching %d objects", n) }
	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "1"})
	if len(f.got) != 1 { t.Fatalf("fired after remove") }
}

func TestBatteryStatus_PrimedFromExistingObject(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Write(trigger.BatteryPath, pps.Attrs{"StateOfCharge": "55"})
	if err := f.ctx.AddEventListener(trigger.EventBatteryStatus, f.fire); err != nil {
		t.Fatalf("add: %v", err)
	}
	f.w.Poll()
	f.set(t, trigger.ChargerPath, pps.Attrs{"ChargingState": "CC"})
	if len(f.got) != 0 { t.Fatalf("initial charger read must not fire: %v", f.got) }
	f.set(t, trigger.ChargerPath, pps.Attrs{"ChargingState": "NC"})
	if len(f.got) != 1 || f.got[0]["isPlugged"] != false || f.got[0]["level"] != 55 {
		t.Fatalf("got=%v", f.got)
	}
}

func TestAddEventListener_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	if err := f.ctx.AddEventListener("languagechanged", f.fire); err == nil {
		t.Fatalf("expected error for event without trigger definition")
	}
}

func TestWorksThroughSubsystem(t *testing.T) {
	f := newFixture(t)
	pub := events.NewMemoryPublisher()
	s := events.NewSubsystem(zerolog.New(io.Discard))
	_ = s.RegisterEvents(events.ActionMap{
		trigger.EventBatteryLow: {Context: f.ctx, Event: trigger.EventBatteryLow, Trigger: func(p any) {
			pub.Publish(events.Event{Name: trigger.EventBatteryLow, Payload: p})
		}},
	})
	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "30"})
	if err := s.Add(trigger.EventBatteryLow); err != nil { t.Fatalf("add: %v", err) }
	f.w.Poll()
	f.set(t, trigger.BatteryPath, pps.Attrs{"StateOfCharge": "14"})
	if names := pub.Names(); len(names) != 1 || names[0] != trigger.EventBatteryLow {
		t.Fatalf("published=%v", names)
	}
}
