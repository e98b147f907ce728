package appevents

import (
	"testing"

	"sysbridge/internal/events"
	"sysbridge/internal/platform"
)

func TestContext_ForwardsHostEvents(t *testing.T) {
	bus := events.NewBus()
	c := New(bus)
	var got []any
	if err := c.AddEventListener(platform.LanguageChangeEvent, func(p any) { got = append(got, p) }); err != nil {
		t.Fatalf("add: %v", err)
	}
	// adding twice keeps a single subscription
	_ = c.AddEventListener(platform.LanguageChangeEvent, func(p any) { got = append(got, p) })
	bus.Trigger(platform.LanguageChangeEvent, "fr_CA")
	bus.Trigger(platform.RegionChangeEvent, "CA")
	if len(got) != 1 || got[0] != "fr_CA" {
		t.Fatalf("got=%v", got)
	}
	c.RemoveEventListener(platform.LanguageChangeEvent)
	c.RemoveEventListener(platform.LanguageChangeEvent)
	if bus.Subscribers(platform.LanguageChangeEvent) != 0 {
		t.Fatalf("still subscribed")
	}
	bus.Trigger(platform.LanguageChangeEvent, "en_US")
	if len(got) != 1 { t.Fatalf("forwarded after remove: %v", got) }
}
