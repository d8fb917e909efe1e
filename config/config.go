// Package config holds the agent configuration: defaults, the YAML file
// format and validation.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nedpals/davi-sector-agent/buildinfo"
	"github.com/nedpals/davi-sector-agent/nfc"
)

// AppName names the XDG config directory.
var AppName = buildinfo.Name

// Default configuration values.
const (
	DefaultPort = 18080

	DefaultDriver = nfc.DriverPCSC

	// DefaultPollInterval is how often the serve loop asks the reader for a card.
	DefaultPollInterval = 500 * time.Millisecond

	DefaultReportFormat = "text"

	// DefaultBootstrapPort serves the local CA certificate over plain HTTP when TLS is on.
	DefaultBootstrapPort = 18081
)

// Report formats accepted by report.format and --format.
var ReportFormats = []string{"text", "json", "markdown"}

// Config holds every agent option. CLI flags override values loaded from the file.
type Config struct {
	// Port is the HTTP/WebSocket listen port for serve.
	Port int `yaml:"port"`

	// APISecret, when set, must be passed as ?secret= on every request.
	APISecret string `yaml:"apiSecret"`

	// MDNS advertises the agent as _nfc-sector._tcp on the local network.
	MDNS bool `yaml:"mdns"`

	// StrictHex rejects dumps containing blocks that are not exactly 32 hex
	// characters instead of decoding them permissively.
	StrictHex bool `yaml:"strictHex"`

	// Verbose enables per-sector log lines.
	Verbose bool `yaml:"verbose"`

	Reader ReaderConfig `yaml:"reader"`
	Report ReportConfig `yaml:"report"`
	TLS    TLSConfig    `yaml:"tls"`
}

// ReaderConfig selects and tunes the live card reader.
type ReaderConfig struct {
	// Driver is "pcsc" or "libnfc".
	Driver string `yaml:"driver"`

	// Device is the PC/SC reader name or libnfc connection string.
	// Empty picks the first available device.
	Device string `yaml:"device"`

	PollInterval time.Duration `yaml:"pollInterval"`

	// Sectors limits how many sectors are read. 0 reads the whole card.
	Sectors int `yaml:"sectors"`

	// Keys are 12 hex digit MIFARE keys tried in order. Empty uses the built-in list.
	Keys []string `yaml:"keys"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Format string `yaml:"format"`
}

// TLSConfig enables HTTPS/WSS with a locally trusted certificate.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// BootstrapPort serves the CA certificate to phones. 0 disables it.
	BootstrapPort int `yaml:"bootstrapPort"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Port: DefaultPort,
		MDNS: true,
		Reader: ReaderConfig{
			Driver:       DefaultDriver,
			PollInterval: DefaultPollInterval,
		},
		Report: ReportConfig{
			Format: DefaultReportFormat,
		},
		TLS: TLSConfig{
			BootstrapPort: DefaultBootstrapPort,
		},
	}
}

// TLSDir returns where generated certificates and the local CA are kept.
func TLSDir() string {
	return filepath.Join(XDGConfigDir(), "tls")
}

// XDGConfigDir returns the XDG config directory for the agent.
// On Linux: ~/.config/davi-sector-agent
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}

	switch c.Reader.Driver {
	case nfc.DriverPCSC, nfc.DriverLibnfc:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Reader.Driver)
	}

	if c.Reader.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	if c.Reader.Sectors < 0 || c.Reader.Sectors > nfc.Classic4KSectors {
		return ErrInvalidSectorCount
	}

	if _, err := c.ReaderKeys(); err != nil {
		return err
	}

	if c.TLS.BootstrapPort < 0 || c.TLS.BootstrapPort > 65535 {
		return ErrInvalidPort
	}
	if c.TLS.Enabled && c.TLS.BootstrapPort == c.Port {
		return fmt.Errorf("%w: bootstrap port %d is already used by the server", ErrInvalidPort, c.Port)
	}

	if !isReportFormat(c.Report.Format) {
		return fmt.Errorf("%w: %q", ErrUnknownReportFormat, c.Report.Format)
	}

	return nil
}

// ReaderKeys parses the configured keys.
func (c *Config) ReaderKeys() ([][6]byte, error) {
	keys := make([][6]byte, 0, len(c.Reader.Keys))
	for _, s := range c.Reader.Keys {
		key, err := nfc.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ReaderOptions builds the options passed to nfc.NewSectorReader.
func (c *Config) ReaderOptions() (nfc.ReaderOptions, error) {
	keys, err := c.ReaderKeys()
	if err != nil {
		return nfc.ReaderOptions{}, err
	}
	return nfc.ReaderOptions{Sectors: c.Reader.Sectors, Keys: keys}, nil
}

func isReportFormat(format string) bool {
	for _, f := range ReportFormats {
		if f == format {
			return true
		}
	}
	return false
}
