package tls

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jittering/truststore"
	"gopkg.in/yaml.v3"
)

// Authority is a local certificate authority able to sign server certificates.
type Authority interface {
	// Install adds the CA to the system trust store. It may prompt for a password.
	Install() error
	// MakeCert issues a certificate for hosts into dir.
	MakeCert(hosts []string, dir string) (certFile, keyFile string, err error)
}

// AuthorityFactory opens the authority whose root lives in caDir.
type AuthorityFactory func(caDir string) (Authority, error)

// Certificate is a server certificate and its key on disk.
type Certificate struct {
	CertFile string
	KeyFile  string
}

// certState records what the current certificate was issued for.
type certState struct {
	Hosts    []string  `yaml:"hosts"`
	IssuedAt time.Time `yaml:"issuedAt"`
}

// Manager keeps a server certificate valid for the machine's current addresses.
type Manager struct {
	dir        string
	caDir      string
	caCertFile string
	certFile   string
	keyFile    string
	stateFile  string

	newAuthority AuthorityFactory
	hosts        func() ([]string, error)
	logger       *log.Logger
}

// NewManager creates a manager storing its files under dir.
func NewManager(dir string) *Manager {
	caDir := filepath.Join(dir, "ca")
	return &Manager{
		dir:          dir,
		caDir:        caDir,
		caCertFile:   filepath.Join(caDir, "rootCA.pem"),
		certFile:     filepath.Join(dir, "server.crt"),
		keyFile:      filepath.Join(dir, "server.key"),
		stateFile:    filepath.Join(dir, "state.yaml"),
		newAuthority: newTruststoreAuthority,
		hosts:        CertificateHosts,
		logger:       log.New(os.Stderr, "[tls] ", log.LstdFlags),
	}
}

// EnsureCertificate returns a certificate covering the current hosts, issuing
// a new one when none exists or the network addresses changed.
func (m *Manager) EnsureCertificate() (Certificate, error) {
	cert := Certificate{CertFile: m.certFile, KeyFile: m.keyFile}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return cert, fmt.Errorf("failed to create TLS directory: %w", err)
	}

	hosts, err := m.hosts()
	if err != nil {
		m.logger.Printf("Warning: failed to get LAN IPs: %v", err)
	}

	switch {
	case !m.certsExist():
		m.logger.Println("Certificates not found, generating...")
	case m.hostsChanged(hosts):
		m.logger.Println("Network configuration changed, regenerating certificates...")
	default:
		m.logger.Println("Using existing certificates")
		return cert, nil
	}

	if err := m.issue(hosts); err != nil {
		return cert, err
	}
	return cert, nil
}

func (m *Manager) certsExist() bool {
	_, certErr := os.Stat(m.certFile)
	_, keyErr := os.Stat(m.keyFile)
	return certErr == nil && keyErr == nil
}

// hostsChanged compares hosts with those of the last issued certificate,
// ignoring order.
func (m *Manager) hostsChanged(hosts []string) bool {
	state, err := m.readState()
	if err != nil {
		return true
	}

	cached := slices.Clone(state.Hosts)
	current := slices.Clone(hosts)
	slices.Sort(cached)
	slices.Sort(current)
	return !slices.Equal(cached, current)
}

func (m *Manager) readState() (certState, error) {
	var state certState
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		return state, err
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse %s: %w", m.stateFile, err)
	}
	return state, nil
}

func (m *Manager) writeState(state certState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(m.stateFile, data, 0o600)
}

// issue installs the CA if needed and signs a certificate for hosts.
func (m *Manager) issue(hosts []string) error {
	if err := os.MkdirAll(m.caDir, 0o700); err != nil {
		return fmt.Errorf("failed to create CA directory: %w", err)
	}

	authority, err := m.newAuthority(m.caDir)
	if err != nil {
		return fmt.Errorf("failed to initialize certificate authority: %w", err)
	}

	m.logger.Println("Ensuring CA is installed in system trust store...")
	m.logger.Println("(You may be prompted for your password)")
	if err := authority.Install(); err != nil {
		return fmt.Errorf("failed to install CA: %w", err)
	}

	m.logger.Printf("Generating certificate for hosts: %v", hosts)
	certFile, keyFile, err := authority.MakeCert(hosts, m.dir)
	if err != nil {
		return fmt.Errorf("failed to generate certificate: %w", err)
	}
	if err := moveFile(certFile, m.certFile); err != nil {
		return fmt.Errorf("failed to move cert file: %w", err)
	}
	if err := moveFile(keyFile, m.keyFile); err != nil {
		return fmt.Errorf("failed to move key file: %w", err)
	}

	if err := m.writeState(certState{Hosts: hosts, IssuedAt: time.Now().UTC()}); err != nil {
		m.logger.Printf("Warning: failed to cache hosts: %v", err)
	}

	m.logger.Printf("Certificate generated: %s", m.certFile)
	if fingerprint, err := m.CAFingerprint(); err == nil {
		m.logger.Printf("CA Fingerprint (SHA256): %s", fingerprint)
	}
	return nil
}

func moveFile(from, to string) error {
	if from == to {
		return nil
	}
	return os.Rename(from, to)
}

// CACertFile returns the path of the CA certificate.
func (m *Manager) CACertFile() string {
	return m.caCertFile
}

// ReadCACert returns the CA certificate PEM.
func (m *Manager) ReadCACert() ([]byte, error) {
	return os.ReadFile(m.caCertFile)
}

// CAFingerprint returns the SHA256 fingerprint of the CA certificate as
// colon-separated hex.
func (m *Manager) CAFingerprint() (string, error) {
	certPEM, err := m.ReadCACert()
	if err != nil {
		return "", fmt.Errorf("failed to read CA certificate: %w", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return "", errors.New("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate: %w", err)
	}

	sum := sha256.Sum256(cert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// newTruststoreAuthority opens an mkcert-style CA rooted at caDir.
func newTruststoreAuthority(caDir string) (Authority, error) {
	// truststore reads its root location from CAROOT
	os.Setenv("CAROOT", caDir)

	lib, err := truststore.NewLib()
	if err != nil {
		return nil, err
	}
	return authorityFuncs{
		install: lib.Install,
		makeCert: func(hosts []string, dir string) (string, string, error) {
			cert, err := lib.MakeCert(hosts, dir)
			if err != nil {
				return "", "", err
			}
			return cert.CertFile, cert.KeyFile, nil
		},
	}, nil
}

type authorityFuncs struct {
	install  func() error
	makeCert func(hosts []string, dir string) (string, string, error)
}

func (a authorityFuncs) Install() error { return a.install() }

func (a authorityFuncs) MakeCert(hosts []string, dir string) (string, string, error) {
	return a.makeCert(hosts, dir)
}
