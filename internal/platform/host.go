package platform

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sysbridge/internal/pps"
)

// Default object paths read by PPSHost.
const (
	DefaultDevicePath = "/pps/services/deviceproperties"
	DefaultLocalePath = "/pps/services/locale/settings"
	DefaultFontPath   = "/pps/services/font/settings"
)

// Host is the accessor surface for host platform properties.
type Host interface {
	FontFamily() (string, error)
	FontSize() (int, error)
	HardwareID() (string, error)
	SoftwareVersion() (string, error)
	DeviceName() (string, error)
	SystemRegion() (string, error)
	SystemLanguage() (string, error)
}

// Paths locates the objects PPSHost reads. Empty fields use the defaults.
type Paths struct {
	Device string
	Locale string
	Font   string
}

func (p Paths) withDefaults() Paths {
	if p.Device == "" {
		p.Device = DefaultDevicePath
	}
	if p.Locale == "" {
		p.Locale = DefaultLocalePath
	}
	if p.Font == "" {
		p.Font = DefaultFontPath
	}
	return p
}

// missingError is returned when a property is absent on the host.
type missingError struct{ obj, attr string }

func (e missingError) Error() string { return fmt.Sprintf("%s: %s not available", e.obj, e.attr) }

// IsMissing reports whether err means the host does not provide the property.
func IsMissing(err error) bool {
	var m missingError
	return errors.As(err, &m)
}

// PPSHost reads host properties from property-store objects on every call.
type PPSHost struct {
	store *pps.Store
	paths Paths
	// machineIDFiles are tried in order when deviceproperties has no id.
	machineIDFiles []string
	hostname       func() (string, error)
}

func NewPPSHost(store *pps.Store, paths Paths) *PPSHost {
	return &PPSHost{
		store:          store,
		paths:          paths.withDefaults(),
		machineIDFiles: []string{"/etc/machine-id", "/sys/class/dmi/id/product_uuid"},
		hostname:       os.Hostname,
	}
}

var _ Host = (*PPSHost)(nil)

// Paths returns the effective object paths.
func (h *PPSHost) Paths() Paths { return h.paths }

func (h *PPSHost) attr(obj, name string) (string, error) {
	attrs, err := h.store.Attrs(obj)
	if err != nil {
		if errors.Is(err, pps.ErrNoObject) {
			return "", missingError{obj: obj, attr: name}
		}
		return "", err
	}
	v, ok := attrs[name]
	if !ok || v == "" {
		return "", missingError{obj: obj, attr: name}
	}
	return v, nil
}

func (h *PPSHost) FontFamily() (string, error) { return h.attr(h.paths.Font, "fontFamily") }

func (h *PPSHost) FontSize() (int, error) {
	v, err := h.attr(h.paths.Font, "fontSize")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("font size %q: %w", v, err)
	}
	return n, nil
}

// HardwareID falls back to the OS machine id when deviceproperties has none.
func (h *PPSHost) HardwareID() (string, error) {
	v, err := h.attr(h.paths.Device, "hardwareid")
	if err == nil || !IsMissing(err) {
		return v, err
	}
	for _, f := range h.machineIDFiles {
		b, rerr := os.ReadFile(f)
		if rerr != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", err
}

func (h *PPSHost) SoftwareVersion() (string, error) { return h.attr(h.paths.Device, "scmbundle") }

// DeviceName falls back to the hostname.
func (h *PPSHost) DeviceName() (string, error) {
	v, err := h.attr(h.paths.Device, "devicename")
	if err == nil || !IsMissing(err) {
		return v, err
	}
	if name, herr := h.hostname(); herr == nil && name != "" {
		return name, nil
	}
	return "", err
}

// SystemLanguage is the locale attribute, e.g. "en_US".
func (h *PPSHost) SystemLanguage() (string, error) { return h.attr(h.paths.Locale, "locale") }

// SystemRegion is the region attribute, or the territory part of the locale
// when no region is set.
func (h *PPSHost) SystemRegion() (string, error) {
	v, err := h.attr(h.paths.Locale, "region")
	if err == nil || !IsMissing(err) {
		return v, err
	}
	loc, lerr := h.SystemLanguage()
	if lerr != nil {
		return "", err
	}
	if r := RegionOf(loc); r != "" {
		return r, nil
	}
	return "", err
}

// RegionOf extracts the territory from a locale such as "en_US" or
// "fr-CA.UTF-8". It returns "" when the locale has none.
func RegionOf(locale string) string {
	loc, _, _ := strings.Cut(locale, ".")
	loc, _, _ = strings.Cut(loc, "@")
	i := strings.IndexAny(loc, "_-")
	if i < 0 || i == len(loc)-1 {
		return ""
	}
	return loc[i+1:]
}
