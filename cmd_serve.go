package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nedpals/davi-sector-agent/config"
	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/server"
	agenttls "github.com/nedpals/davi-sector-agent/tls"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket agent",
		Long: `Serve accepts tag events on POST /api/v1/sectors, answers classification
requests on /ws and broadcasts every report to connected WebSocket clients.

With a local reader, each new card presented is read and broadcast too.

Examples:
  # Serve on the default port with the PC/SC reader loop
  davi-sector-agent serve

  # Phones only, with HTTPS and a shared secret
  davi-sector-agent serve --no-reader --tls --secret s3cret`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().IntP("port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().String("secret", "", "API secret required as ?secret= (optional)")
	cmd.Flags().Bool("no-mdns", false, "Disable mDNS advertisement")
	cmd.Flags().Bool("no-reader", false, "Do not poll a local reader")
	cmd.Flags().Bool("tls", false, "Serve HTTPS/WSS with a locally trusted certificate")
	cmd.Flags().Bool("strict", false, "Reject blocks that are not 32 hex characters")
	addReaderFlags(cmd)
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	applyStringFlag(cmd, "secret", &cfg.APISecret)
	applyBoolFlag(cmd, "tls", &cfg.TLS.Enabled)
	if noMDNS, _ := cmd.Flags().GetBool("no-mdns"); noMDNS {
		cfg.MDNS = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	serverConfig := server.Config{
		Port:         cfg.Port,
		APISecret:    cfg.APISecret,
		MDNS:         cfg.MDNS,
		StrictHex:    cfg.StrictHex,
		Verbose:      cfg.Verbose,
		PollInterval: cfg.Reader.PollInterval,
		Classifier:   nfc.DefaultClassifier,
	}

	if noReader, _ := cmd.Flags().GetBool("no-reader"); !noReader {
		reader, err := newReader(cfg)
		if err != nil {
			return err
		}
		serverConfig.Reader = reader
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TLS.Enabled {
		manager := agenttls.NewManager(config.TLSDir())
		cert, err := manager.EnsureCertificate()
		if err != nil {
			return fmt.Errorf("TLS setup failed: %w", err)
		}
		serverConfig.TLSCertFile = cert.CertFile
		serverConfig.TLSKeyFile = cert.KeyFile

		if cfg.TLS.BootstrapPort > 0 {
			bootstrap := agenttls.NewBootstrapServer(manager, cfg.TLS.BootstrapPort)
			g.Go(func() error { return bootstrap.Run(gctx) })
		}
	}

	srv := server.New(serverConfig)
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Shutdown complete")
	return nil
}
