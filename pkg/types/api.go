package types

// DataResponse wraps a successful operation result.
type DataResponse struct {
	// Operation result; its shape depends on the endpoint.
	Data any `json:"data"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Fail to read timezones
	Error string `json:"error" example:"Fail to read timezones"`
	// Error code. Operations report a single generic code.
	// example: -1
	Code int `json:"code" example:"-1"`
}

// FontInfo is returned by GET /system/font and carried by fontchanged.
// Attributes the host does not provide are omitted.
type FontInfo struct {
	// example: Slate Pro
	FontFamily string `json:"fontFamily,omitempty" example:"Slate Pro"`
	// Size in points.
	// example: 8
	FontSize int `json:"fontSize,omitempty" example:"8"`
}

// DeviceProperties is returned by GET /system/device.
// Attributes the host does not provide are omitted.
type DeviceProperties struct {
	// example: 0x8500240a
	HardwareID string `json:"hardwareId,omitempty" example:"0x8500240a"`
	// example: 10.2.1.1925
	SoftwareVersion string `json:"softwareVersion,omitempty" example:"10.2.1.1925"`
	// example: Z10
	Name string `json:"name,omitempty" example:"Z10"`
}

// EventMessage is pushed to WebSocket clients when an event fires.
type EventMessage struct {
	// example: batterylow
	Event   string `json:"event" example:"batterylow"`
	Payload any    `json:"payload,omitempty"`
}

// ClientMessage is sent by WebSocket clients to add or remove a listener.
type ClientMessage struct {
	// "add" or "remove".
	// example: add
	Action string `json:"action" example:"add"`
	// example: batterystatus
	Event string `json:"event" example:"batterystatus"`
}

// ClientAck answers a ClientMessage.
type ClientAck struct {
	Action string `json:"action"`
	Event  string `json:"event"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}
