package trigger

// Event names fired to the web runtime.
const (
	EventBatteryCritical = "batterycritical"
	EventBatteryLow      = "batterylow"
	EventBatteryStatus   = "batterystatus"
)

// Property-store sources watched by the battery events.
const (
	BatteryPath = "/pps/services/power/battery?wait,delta"
	ChargerPath = "/pps/services/power/charger?wait,delta"
)

// Thresholds at or below which the level counts as critical / low.
const (
	CriticalThreshold = 4
	LowThreshold      = 14
)

// Storage selects what a threshold field remembers between notifications.
type Storage int

const (
	// StoreFormatted keeps the parsed level.
	StoreFormatted Storage = iota
	// StoreRaw keeps the unparsed string as received.
	StoreRaw
)

// Threshold suppresses firing unless the level crosses from above Limit to
// at or below it.
type Threshold struct {
	Limit int
	Store Storage
}

// FieldSpec describes one attribute of a watched object: the source
// attribute name, the payload key and how the raw value is formatted.
// Suppress is nil for fields that fire on every change.
type FieldSpec struct {
	Source   string
	Param    string
	Format   Formatter
	Suppress *Threshold
}

// SourceWatch is one watched object path. With DisableOnChange set, changes
// on this path never fire the event but still refresh the payload.
type SourceWatch struct {
	Path            string
	DisableOnChange bool
	Fields          []FieldSpec
}

// EventDefinition is a named application event and the sources it depends on.
type EventDefinition struct {
	Name    string
	Sources []SourceWatch
}

func levelField(th *Threshold) FieldSpec {
	return FieldSpec{Source: "StateOfCharge", Param: "level", Format: FormatLevel, Suppress: th}
}

func chargerField() FieldSpec {
	return FieldSpec{Source: "ChargingState", Param: "isPlugged", Format: FormatPlugged}
}

// DefaultTable returns the battery event table. Each call builds fresh
// values; evaluator state is never shared through it.
func DefaultTable() []EventDefinition {
	return []EventDefinition{
		{
			Name: EventBatteryCritical,
			Sources: []SourceWatch{
				{Path: BatteryPath, Fields: []FieldSpec{levelField(&Threshold{Limit: CriticalThreshold, Store: StoreFormatted})}},
				{Path: ChargerPath, DisableOnChange: true, Fields: []FieldSpec{chargerField()}},
			},
		},
		{
			// batterylow remembers the raw string, unlike batterycritical.
			// Kept for parity with deployed behaviour.
			Name: EventBatteryLow,
			Sources: []SourceWatch{
				{Path: BatteryPath, Fields: []FieldSpec{levelField(&Threshold{Limit: LowThreshold, Store: StoreRaw})}},
				{Path: ChargerPath, DisableOnChange: true, Fields: []FieldSpec{chargerField()}},
			},
		},
		{
			Name: EventBatteryStatus,
			Sources: []SourceWatch{
				{Path: BatteryPath, Fields: []FieldSpec{levelField(nil)}},
				{Path: ChargerPath, Fields: []FieldSpec{chargerField()}},
			},
		},
	}
}
