package system

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/internal/platform"
	"sysbridge/internal/pps"
	"sysbridge/internal/whitelist"
)

type fakeHost struct {
	family  string
	size    int
	id      string
	version string
	name    string
	region  string
	err     error
	panics  bool
}

func (h *fakeHost) check() error {
	if h.panics {
		panic("host crashed")
	}
	return h.err
}
func (h *fakeHost) FontFamily() (string, error)      { return h.family, h.check() }
func (h *fakeHost) FontSize() (int, error)           { return h.size, h.check() }
func (h *fakeHost) HardwareID() (string, error)      { return h.id, h.check() }
func (h *fakeHost) SoftwareVersion() (string, error) { return h.version, h.check() }
func (h *fakeHost) DeviceName() (string, error)      { return h.name, h.check() }
func (h *fakeHost) SystemRegion() (string, error)    { return h.region, h.check() }
func (h *fakeHost) SystemLanguage() (string, error)  { return "en_US", h.check() }

type recordingRegistrar struct {
	got events.ActionMap
	err error
}

func (r *recordingRegistrar) RegisterEvents(m events.ActionMap) error {
	r.got = m
	return r.err
}

type nopContext struct{}

func (nopContext) AddEventListener(string, events.TriggerFunc) error { return nil }
func (nopContext) RemoveEventListener(string)                        {}

func newService(t *testing.T, host *fakeHost) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	store, err := pps.NewStore(root)
	if err != nil { t.Fatalf("store: %v", err) }
	wl, err := whitelist.New([]whitelist.Entry{{Origin: "local://", Features: []string{"geolocation", "blackberry.system"}}})
	if err != nil { t.Fatalf("whitelist: %v", err) }
	return New(Config{
		Store:       store,
		Host:        host,
		Whitelist:   wl,
		SandboxRoot: root,
		Log:         zerolog.New(io.Discard),
	}), root
}

func TestHasPermission_Sanitizes(t *testing.T) {
	s, _ := newService(t, &fakeHost{})
	if got := s.HasPermission("geolocation%22", "local:///index.html"); got != Allow {
		t.Fatalf("geolocation%%22 -> %d, want allow", got)
	}
	if got := s.HasPermission(`"blackberry.system"`, "local:///index.html"); got != Allow {
		t.Fatalf("quoted module -> %d, want allow", got)
	}
	if got := s.HasPermission("unknown.module", "local:///index.html"); got != Deny {
		t.Fatalf("unknown -> %d, want deny", got)
	}
	if got := s.HasPermission("geolocation", "https://evil.example"); got != Deny {
		t.Fatalf("other origin -> %d, want deny", got)
	}
}

func TestHasCapability(t *testing.T) {
	s, _ := newService(t, &fakeHost{})
	for _, c := range SupportedCapabilities {
		if !s.HasCapability(c) { t.Fatalf("%s should be supported", c) }
	}
	if !s.HasCapability("%22input.touch%22") { t.Fatalf("quoted capability should be sanitized") }
	if s.HasCapability("unknown.thing") { t.Fatalf("unknown.thing should not be supported") }
	if len(SupportedCapabilities) != 7 { t.Fatalf("capabilities=%d", len(SupportedCapabilities)) }
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{"geolocation%22": "geolocation", "a.b-c_1": "a.bc", "": "", "%22%22": ""}
	for in, want := range cases {
		if got := Sanitize(in); got != want { t.Fatalf("Sanitize(%q)=%q want %q", in, got, want) }
	}
}

func TestPropertyGetters(t *testing.T) {
	s, _ := newService(t, &fakeHost{family: "Slate Pro", size: 8, id: "0x1", version: "10.2", name: "Z10", region: "CA"})
	fi, err := s.FontInfo()
	if err != nil || fi.FontFamily != "Slate Pro" || fi.FontSize != 8 { t.Fatalf("font=%+v err=%v", fi, err) }
	dp, err := s.DeviceProperties()
	if err != nil || dp.HardwareID != "0x1" || dp.SoftwareVersion != "10.2" || dp.Name != "Z10" {
		t.Fatalf("device=%+v err=%v", dp, err)
	}
	r, err := s.Region()
	if err != nil || r == nil || *r != "CA" { t.Fatalf("region=%v err=%v", r, err) }
}

func TestPropertyGetters_ReportHostFailure(t *testing.T) {
	boom := errors.New("accessor gone")
	s, _ := newService(t, &fakeHost{err: boom})
	checks := map[string]func() error{
		"font":   func() error { _, err := s.FontInfo(); return err },
		"device": func() error { _, err := s.DeviceProperties(); return err },
		"region": func() error { _, err := s.Region(); return err },
	}
	for name, fn := range checks {
		err := fn()
		var oe *OperationError
		if !errors.As(err, &oe) || oe.Code != ErrorID || !errors.Is(err, boom) {
			t.Fatalf("%s: err=%v", name, err)
		}
		if oe.Message() != "accessor gone" { t.Fatalf("%s: message=%q", name, oe.Message()) }
	}

	s, _ = newService(t, &fakeHost{panics: true})
	if _, err := s.Region(); !IsOperationFailed(err) { t.Fatalf("panic should become an operation error, got %v", err) }
}

func TestPropertyGetters_AbsentPropertyIsEmpty(t *testing.T) {
	root := t.TempDir()
	store, err := pps.NewStore(root)
	if err != nil { t.Fatalf("store: %v", err) }
	if err := store.Write(platform.DefaultDevicePath, pps.Attrs{"hardwareid": "0x8500240a", "devicename": "Z10"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(platform.DefaultLocalePath, pps.Attrs{"other": "x"}); err != nil { t.Fatalf("write: %v", err) }
	if err := store.Write(platform.DefaultFontPath, pps.Attrs{"fontFamily": "Slate Pro"}); err != nil { t.Fatalf("write: %v", err) }
	s := New(Config{Store: store, Host: platform.NewPPSHost(store, platform.Paths{}), SandboxRoot: root, Log: zerolog.New(io.Discard)})

	dp, err := s.DeviceProperties()
	if err != nil { t.Fatalf("device: %v", err) }
	if dp.HardwareID != "0x8500240a" || dp.Name != "Z10" || dp.SoftwareVersion != "" { t.Fatalf("device=%+v", dp) }

	r, err := s.Region()
	if err != nil || r != nil { t.Fatalf("region=%v err=%v", r, err) }

	fi, err := s.FontInfo()
	if err != nil || fi.FontFamily != "Slate Pro" || fi.FontSize != 0 { t.Fatalf("font=%+v err=%v", fi, err) }

	// a malformed value is still a failure
	if err := store.Write(platform.DefaultFontPath, pps.Attrs{"fontSize": "big"}); err != nil { t.Fatalf("write: %v", err) }
	if _, err := s.FontInfo(); !IsOperationFailed(err) { t.Fatalf("bad font size: %v", err) }
}

func TestCurrentTimezone(t *testing.T) {
	s, root := newService(t, &fakeHost{})
	tz, err := s.CurrentTimezone()
	if err != nil || tz != nil { t.Fatalf("missing object: tz=%v err=%v", tz, err) }

	store, _ := pps.NewStore(root)
	if err := store.Write(DefaultTimezonePath, pps.Attrs{"other": "x"}); err != nil { t.Fatalf("write: %v", err) }
	tz, err = s.CurrentTimezone()
	if err != nil || tz != nil { t.Fatalf("missing field: tz=%v err=%v", tz, err) }

	if err := store.Write(DefaultTimezonePath, pps.Attrs{"_CS_TIMEZONE": "America/Toronto"}); err != nil { t.Fatalf("write: %v", err) }
	tz, err = s.CurrentTimezone()
	if err != nil || tz == nil || *tz != "America/Toronto" { t.Fatalf("tz=%v err=%v", tz, err) }
}

func TestTimezones(t *testing.T) {
	s, root := newService(t, &fakeHost{})
	_, err := s.Timezones()
	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("missing file should fail, got %v", err)
	}
	if oe.Message() != "Fail to read timezones" || oe.Code != -1 {
		t.Fatalf("unexpected error: %+v", oe)
	}

	file := filepath.Join(root, "usr", "share", "zoneinfo", "tzvalid")
	_ = os.MkdirAll(filepath.Dir(file), 0o755)
	if err := os.WriteFile(file, []byte("\"America/Toronto\"\n\"America/Vancouver\"\njunk\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	zones, err := s.Timezones()
	if err != nil { t.Fatalf("timezones: %v", err) }
	if len(zones) != 2 || zones[0] != "America/Toronto" || zones[1] != "America/Vancouver" {
		t.Fatalf("zones=%v", zones)
	}
}

func TestParseTimezones(t *testing.T) {
	got := ParseTimezones("\"Europe/Paris\"\r\n # comment\n\"Asia/\"Tokyo\"\n")
	if len(got) != 2 || got[0] != "Europe/Paris" || got[1] != "Asia/Tokyo" { t.Fatalf("got=%q", got) }
	if got := ParseTimezones(""); got == nil || len(got) != 0 { t.Fatalf("empty content -> %v", got) }
}

func TestRegisterEvents(t *testing.T) {
	s, _ := newService(t, &fakeHost{})
	if err := s.RegisterEvents(); !IsOperationFailed(err) { t.Fatalf("no loader: %v", err) }

	reg := &recordingRegistrar{}
	s.loadEvents = func() (events.Registrar, error) { return reg, nil }
	s.actions = Actions(nopContext{}, nopContext{}, events.NoopPublisher{})
	if s.Ready() { t.Fatalf("ready before registration") }
	if err := s.RegisterEvents(); err != nil { t.Fatalf("register: %v", err) }
	if !s.Ready() { t.Fatalf("not ready after registration") }
	for _, name := range []string{"batterycritical", "batterylow", "batterystatus", "languagechanged", "regionchanged", "fontchanged"} {
		if _, ok := reg.got[name]; !ok { t.Fatalf("action %s not registered", name) }
	}

	loadErr := errors.New("cannot load event extension")
	s.loadEvents = func() (events.Registrar, error) { return nil, loadErr }
	err := s.RegisterEvents()
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != ErrorID || !errors.Is(err, loadErr) {
		t.Fatalf("load failure: %v", err)
	}
}

func TestActions_PublishUnderApplicationNames(t *testing.T) {
	pub := events.NewMemoryPublisher()
	m := Actions(nopContext{}, nopContext{}, pub)
	m["fontchanged"].Trigger(map[string]any{"fontSize": 9})
	m["languagechanged"].Trigger("fr_CA")
	if n := pub.Names(); len(n) != 2 || n[0] != "fontchanged" || n[1] != "languagechanged" {
		t.Fatalf("names=%v", n)
	}
	if m["languagechanged"].Event != "systemLanguageChange" { t.Fatalf("context event=%q", m["languagechanged"].Event) }
}
