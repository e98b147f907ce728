package system

import (
	"sysbridge/internal/events"
	"sysbridge/internal/platform"
	"sysbridge/internal/trigger"
)

// Application event names for host events.
const (
	EventLanguageChanged = "languagechanged"
	EventRegionChanged   = "regionchanged"
	EventFontChanged     = "fontchanged"
)

// Actions builds the action map registered by RegisterEvents. Battery
// events come from ppsCtx, language/region/font changes from appCtx; every
// trigger publishes the application event on pub.
func Actions(ppsCtx, appCtx events.Context, pub events.Publisher) events.ActionMap {
	fire := func(name string) events.TriggerFunc {
		return func(payload any) { pub.Publish(events.Event{Name: name, Payload: payload}) }
	}
	return events.ActionMap{
		trigger.EventBatteryCritical: {Context: ppsCtx, Event: trigger.EventBatteryCritical, Trigger: fire(trigger.EventBatteryCritical)},
		trigger.EventBatteryLow:      {Context: ppsCtx, Event: trigger.EventBatteryLow, Trigger: fire(trigger.EventBatteryLow)},
		trigger.EventBatteryStatus:   {Context: ppsCtx, Event: trigger.EventBatteryStatus, Trigger: fire(trigger.EventBatteryStatus)},
		EventLanguageChanged:         {Context: appCtx, Event: platform.LanguageChangeEvent, Trigger: fire(EventLanguageChanged)},
		EventRegionChanged:           {Context: appCtx, Event: platform.RegionChangeEvent, Trigger: fire(EventRegionChanged)},
		EventFontChanged:             {Context: appCtx, Event: platform.FontChangeEvent, Trigger: fire(EventFontChanged)},
	}
}
