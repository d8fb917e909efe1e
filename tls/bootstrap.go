package tls

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/nedpals/davi-sector-agent/buildinfo"
)

// BootstrapServer serves the CA certificate over plain HTTP so a phone can
// trust the agent before connecting over HTTPS.
type BootstrapServer struct {
	manager *Manager
	port    int
	logger  *log.Logger
}

// NewBootstrapServer creates a new bootstrap server for CA distribution.
func NewBootstrapServer(manager *Manager, port int) *BootstrapServer {
	return &BootstrapServer{
		manager: manager,
		port:    port,
		logger:  log.New(os.Stderr, "[bootstrap] ", log.LstdFlags),
	}
}

// Handler returns the bootstrap routes.
func (s *BootstrapServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ca.pem", s.handleCACert)
	mux.HandleFunc("/ca.crt", s.handleCACert)
	mux.HandleFunc("/", s.handleInstructions)
	return mux
}

// Run serves until ctx is cancelled.
func (s *BootstrapServer) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Printf("CA Bootstrap server running on http://localhost:%d", s.port)
	for _, url := range s.downloadURLs() {
		s.logger.Printf("  %s", url)
	}
	if fingerprint, err := s.manager.CAFingerprint(); err == nil {
		s.logger.Printf("CA Fingerprint (SHA256): %s", fingerprint)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bootstrap server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *BootstrapServer) handleCACert(w http.ResponseWriter, r *http.Request) {
	caCert, err := s.manager.ReadCACert()
	if err != nil {
		http.Error(w, "CA certificate not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", buildinfo.Name+"-ca.pem"))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(caCert)

	s.logger.Printf("CA certificate downloaded by %s", r.RemoteAddr)
}

// downloadURLs lists the CA download URLs reachable from the LAN.
func (s *BootstrapServer) downloadURLs() []string {
	hosts, _ := CertificateHosts()
	urls := []string{fmt.Sprintf("http://localhost:%d/ca.pem", s.port)}
	for _, h := range hosts {
		if h == "localhost" || h == "127.0.0.1" || net.ParseIP(h) == nil {
			continue
		}
		urls = append(urls, fmt.Sprintf("http://%s:%d/ca.pem", h, s.port))
	}
	return urls
}

var instructionsTemplate = template.Must(template.New("instructions").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.AppName}} - Install CA Certificate</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; }
        .fingerprint { font-family: monospace; font-size: 0.75em; background: #f0f0f0; padding: 12px; word-break: break-all; }
        .steps li { margin-bottom: 12px; line-height: 1.5; }
    </style>
</head>
<body>
    <h1>Install CA Certificate</h1>
    <p>Install this certificate authority so your phone can send sector dumps to {{.AppName}} over HTTPS.</p>
    <p><a href="/ca.pem">Download CA Certificate</a></p>
    <p><strong>Verify the fingerprint</strong> matches the one in the {{.AppName}} logs before trusting it.</p>
    <div class="fingerprint">{{.Fingerprint}}</div>

    <h2>iOS</h2>
    <ol class="steps">
        <li>Download the certificate and open Settings, Profile Downloaded</li>
        <li>Tap Install and enter your passcode</li>
        <li>Enable full trust under General, About, Certificate Trust Settings</li>
    </ol>

    <h2>Android</h2>
    <ol class="steps">
        <li>Download the certificate</li>
        <li>Open Settings, Security, Encryption &amp; credentials</li>
        <li>Choose Install a certificate, CA certificate, and select the file</li>
    </ol>

    <h2>Download URLs</h2>
    <ul>{{range .URLs}}
        <li><code>{{.}}</code></li>{{end}}
    </ul>
</body>
</html>
`))

func (s *BootstrapServer) handleInstructions(w http.ResponseWriter, r *http.Request) {
	fingerprint, err := s.manager.CAFingerprint()
	if err != nil {
		fingerprint = "unavailable"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = instructionsTemplate.Execute(w, struct {
		AppName     string
		Fingerprint string
		URLs        []string
	}{buildinfo.DisplayName, fingerprint, s.downloadURLs()})
	if err != nil {
		s.logger.Printf("Failed to render instructions: %v", err)
	}
}
