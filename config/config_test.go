package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Port != 18080 {
		t.Errorf("expected Port to be 18080, got %d", cfg.Port)
	}
	if !cfg.MDNS {
		t.Error("expected MDNS to be enabled")
	}
	if cfg.StrictHex {
		t.Error("expected StrictHex to be false")
	}
	if cfg.Reader.Driver != "pcsc" {
		t.Errorf("expected driver pcsc, got %q", cfg.Reader.Driver)
	}
	if cfg.Reader.PollInterval != 500*time.Millisecond {
		t.Errorf("expected PollInterval to be 500ms, got %v", cfg.Reader.PollInterval)
	}
	if cfg.Report.Format != "text" {
		t.Errorf("expected format text, got %q", cfg.Report.Format)
	}
	if cfg.TLS.Enabled || cfg.TLS.BootstrapPort != 18081 {
		t.Errorf("unexpected TLS defaults %+v", cfg.TLS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to be valid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, ErrInvalidPort},
		{"port too large", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"unknown driver", func(c *Config) { c.Reader.Driver = "serial" }, ErrUnknownDriver},
		{"libnfc driver", func(c *Config) { c.Reader.Driver = "libnfc" }, nil},
		{"zero poll interval", func(c *Config) { c.Reader.PollInterval = 0 }, ErrInvalidPollInterval},
		{"negative sectors", func(c *Config) { c.Reader.Sectors = -1 }, ErrInvalidSectorCount},
		{"too many sectors", func(c *Config) { c.Reader.Sectors = 41 }, ErrInvalidSectorCount},
		{"4K sector count", func(c *Config) { c.Reader.Sectors = 40 }, nil},
		{"bad key", func(c *Config) { c.Reader.Keys = []string{"FFFF"} }, ErrInvalidKey},
		{"good keys", func(c *Config) { c.Reader.Keys = []string{"FFFFFFFFFFFF", "a0:a1:a2:a3:a4:a5"} }, nil},
		{"unknown format", func(c *Config) { c.Report.Format = "html" }, ErrUnknownReportFormat},
		{"markdown format", func(c *Config) { c.Report.Format = "markdown" }, nil},
		{"bad bootstrap port", func(c *Config) { c.TLS.BootstrapPort = -1 }, ErrInvalidPort},
		{"bootstrap port clash", func(c *Config) { c.TLS.Enabled = true; c.TLS.BootstrapPort = c.Port }, ErrInvalidPort},
		{"bootstrap disabled", func(c *Config) { c.TLS.Enabled = true; c.TLS.BootstrapPort = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReaderOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Reader.Sectors = 4
	cfg.Reader.Keys = []string{"D3F7D3F7D3F7"}

	opts, err := cfg.ReaderOptions()
	if err != nil {
		t.Fatalf("ReaderOptions failed: %v", err)
	}
	if opts.Sectors != 4 {
		t.Errorf("expected 4 sectors, got %d", opts.Sectors)
	}
	if len(opts.Keys) != 1 || opts.Keys[0] != [6]byte{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7} {
		t.Errorf("unexpected keys %X", opts.Keys)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `port: 9000
apiSecret: s3cret
strictHex: true
reader:
  driver: libnfc
  device: "pn532_uart:/dev/ttyUSB0"
  pollInterval: 2s
  keys:
    - FFFFFFFFFFFF
report:
  format: markdown
tls:
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}

	if cfg.Port != 9000 || cfg.APISecret != "s3cret" || !cfg.StrictHex {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	if cfg.Reader.Driver != "libnfc" || cfg.Reader.Device != "pn532_uart:/dev/ttyUSB0" {
		t.Errorf("unexpected reader %+v", cfg.Reader)
	}
	if cfg.Reader.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.Reader.PollInterval)
	}
	if cfg.Report.Format != "markdown" {
		t.Errorf("expected markdown, got %q", cfg.Report.Format)
	}
	if !cfg.TLS.Enabled || cfg.TLS.BootstrapPort != DefaultBootstrapPort {
		t.Errorf("unexpected TLS config %+v", cfg.TLS)
	}
	// mdns is not in the file and keeps its default
	if !cfg.MDNS {
		t.Error("expected MDNS default to survive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("port: [not a number"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Error("expected YAML error")
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound for explicit path, got %v", err)
	}

	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte("port: 8123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("expected port 8123, got %d", cfg.Port)
	}
}

func TestFindConfigFile_Explicit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if got := FindConfigFile(path); got != "" {
		t.Errorf("expected empty path for missing file, got %q", got)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
}

func TestXDGConfigDir(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected XDG dir to end in %s, got %s", AppName, XDGConfigDir())
	}
}
