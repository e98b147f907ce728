package config

import (
	"os"
	"path/filepath"
	"testing"

	"sysbridge/internal/whitelist"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: ":9999"
pps_root: /tmp/pps
poll_interval_ms: 250
host:
  font_path: /pps/custom/font
cors:
  enabled: true
  allowed_origins: ["local://"]
whitelist:
  - origin: "local://"
    features: [geolocation, blackberry.system]
`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":9999" || cfg.PPSRoot != "/tmp/pps" || cfg.PollIntervalMS != 250 || cfg.Host.FontPath != "/pps/custom/font" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("cors: %+v", cfg.CORS)
	}
	if len(cfg.Whitelist) != 1 || cfg.Whitelist[0].Origin != "local://" || len(cfg.Whitelist[0].Features) != 2 {
		t.Fatalf("whitelist: %+v", cfg.Whitelist)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","log_level":"debug","timezones_file":"/x/tzvalid","whitelist":[{"origin":"*","features":["blackberry.event"]}]}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":7070" || cfg.LogLevel != "debug" || cfg.TimezonesFile != "/x/tzvalid" || cfg.Whitelist[0].Origin != "*" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nsandbox_root=\"/sandbox\"\n\n[host]\ndevice_path=\"/pps/dev\"\n\n[[whitelist]]\norigin=\"https://example.com\"\nsubdomains=true\nfeatures=[\"blackberry.app\"]\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":8081" || cfg.SandboxRoot != "/sandbox" || cfg.Host.DevicePath != "/pps/dev" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Whitelist) != 1 || !cfg.Whitelist[0].Subdomains {
		t.Fatalf("whitelist: %+v", cfg.Whitelist)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
	p = writeTempFile(t, d, "bad.json", "{")
	if _, err := Load(p); err == nil { t.Fatalf("expected parse error") }
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil { t.Fatalf("expected read error") }
}

func TestDefaultsEnvValidate(t *testing.T) {
	var cfg Config
	cfg.CORS.Enabled = true
	cfg.ApplyDefaults()
	if cfg.Addr != DefaultAddr || cfg.LogLevel != "info" || cfg.LogFormat != "json" || cfg.PollIntervalMS != DefaultPollIntervalMS || cfg.PPSRoot != "/" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if len(cfg.CORS.AllowedMethods) == 0 { t.Fatalf("cors methods not defaulted") }

	env := map[string]string{"SYSBRIDGE_ADDR": ":1", "SYSBRIDGE_PPS_ROOT": "/r", "SYSBRIDGE_LOG_LEVEL": "debug"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Addr != ":1" || cfg.PPSRoot != "/r" || cfg.LogLevel != "debug" || cfg.SandboxRoot != "/" {
		t.Fatalf("env: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil { t.Fatalf("validate: %v", err) }

	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil { t.Fatalf("expected log_format error") }
	cfg.LogFormat = "console"
	cfg.Whitelist = append(cfg.Whitelist, whitelistEntry("no-scheme"))
	if err := cfg.Validate(); err == nil { t.Fatalf("expected whitelist error") }
}

func whitelistEntry(origin string) whitelist.Entry { return whitelist.Entry{Origin: origin} }
