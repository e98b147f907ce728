package system

import (
	"errors"
	"regexp"
	"sync/atomic"

	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/internal/platform"
	"sysbridge/internal/pps"
	"sysbridge/internal/whitelist"
	"sysbridge/pkg/types"
)

// Permission results.
const (
	Allow = 0
	Deny  = 1
)

// SupportedCapabilities are the capability ids HasCapability accepts.
var SupportedCapabilities = []string{
	"input.touch",
	"location.gps",
	"media.audio.capture",
	"media.video.capture",
	"media.recording",
	"network.bluetooth",
	"network.wlan",
}

// Loader loads the host event subsystem.
type Loader func() (events.Registrar, error)

// Config wires a Service. Zero path fields use the package defaults.
type Config struct {
	Store         *pps.Store
	Host          platform.Host
	Whitelist     *whitelist.Whitelist
	SandboxRoot   string
	TimezonePath  string
	TimezonesFile string
	LoadEvents    Loader
	Actions       events.ActionMap
	Log           zerolog.Logger
}

// Service implements the boundary operations exposed to the web runtime.
// Each operation is independent and all-or-nothing.
type Service struct {
	store         *pps.Store
	host          platform.Host
	wl            *whitelist.Whitelist
	sandboxRoot   string
	timezonePath  string
	timezonesFile string
	loadEvents    Loader
	actions       events.ActionMap
	log           zerolog.Logger

	registered atomic.Bool
}

func New(cfg Config) *Service {
	s := &Service{
		store:         cfg.Store,
		host:          cfg.Host,
		wl:            cfg.Whitelist,
		sandboxRoot:   cfg.SandboxRoot,
		timezonePath:  cfg.TimezonePath,
		timezonesFile: cfg.TimezonesFile,
		loadEvents:    cfg.LoadEvents,
		actions:       cfg.Actions,
		log:           cfg.Log,
	}
	if s.sandboxRoot == "" {
		s.sandboxRoot = "/"
	}
	if s.timezonePath == "" {
		s.timezonePath = DefaultTimezonePath
	}
	if s.timezonesFile == "" {
		s.timezonesFile = DefaultTimezonesFile
	}
	return s
}

// RegisterEvents hands the action map to the host event subsystem.
func (s *Service) RegisterEvents() error {
	if s.loadEvents == nil {
		return fail("", errors.New("event subsystem unavailable"))
	}
	err := guard(func() error {
		reg, err := s.loadEvents()
		if err != nil {
			return err
		}
		if reg == nil {
			return errors.New("event subsystem unavailable")
		}
		return reg.RegisterEvents(s.actions)
	})
	if err != nil {
		s.log.Error().Err(err).Msg("register events")
		return err
	}
	s.registered.Store(true)
	s.log.Info().Int("events", len(s.actions)).Msg("events registered")
	return nil
}

// Ready reports whether RegisterEvents has succeeded at least once.
func (s *Service) Ready() bool { return s.registered.Load() }

var unsafeChars = regexp.MustCompile(`[^a-zA-Z.]+`)

// Sanitize keeps letters and dots only, so a quoted argument such as
// "geolocation%22" becomes "geolocation".
func Sanitize(s string) string { return unsafeChars.ReplaceAllString(s, "") }

// HasPermission returns Allow when origin may use module, Deny otherwise.
func (s *Service) HasPermission(module, origin string) int {
	if s.wl.IsFeatureAllowed(origin, Sanitize(module)) {
		return Allow
	}
	return Deny
}

// HasCapability reports whether the capability id is supported.
func (s *Service) HasCapability(capability string) bool {
	c := Sanitize(capability)
	for _, sc := range SupportedCapabilities {
		if sc == c {
			return true
		}
	}
	return false
}

// optional drops the "not provided" error: an absent host property reads as
// an empty or null field, not a failure.
func optional(err error) error {
	if platform.IsMissing(err) {
		return nil
	}
	return err
}

// FontInfo reports the system font. Unset attributes are left zero.
func (s *Service) FontInfo() (types.FontInfo, error) {
	var fi types.FontInfo
	err := guard(func() error {
		var err error
		if fi.FontFamily, err = s.host.FontFamily(); optional(err) != nil {
			return err
		}
		if fi.FontSize, err = s.host.FontSize(); optional(err) != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return types.FontInfo{}, err
	}
	return fi, nil
}

// DeviceProperties reports the device identity. Unset attributes are left
// empty and omitted from the JSON body.
func (s *Service) DeviceProperties() (types.DeviceProperties, error) {
	var dp types.DeviceProperties
	err := guard(func() error {
		var err error
		if dp.HardwareID, err = s.host.HardwareID(); optional(err) != nil {
			return err
		}
		if dp.SoftwareVersion, err = s.host.SoftwareVersion(); optional(err) != nil {
			return err
		}
		if dp.Name, err = s.host.DeviceName(); optional(err) != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return types.DeviceProperties{}, err
	}
	return dp, nil
}

// Region returns the system region, or nil when the host has none.
func (s *Service) Region() (*string, error) {
	var region *string
	err := guard(func() error {
		r, err := s.host.SystemRegion()
		if err != nil {
			return optional(err)
		}
		region = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return region, nil
}
