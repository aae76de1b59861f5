package cli

import (
	"fmt"

	"skrut/internal/config"
	"skrut/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP evaluation service",
	Long: `Start an HTTP server that exposes resume evaluation.

Available endpoints:
- POST /evaluate: Evaluate an uploaded resume (multipart field "file")
- POST /evaluate/stream: Same, streaming progress as server-sent events
- GET /job-description: Read the stored job description
- POST /job-description: Replace the stored job description
- GET /health: Model availability and circuit breaker state
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

var serveFlags struct {
	Port     string
	Host     string
	TLSMode  string
	CertFile string
	KeyFile  string
	JDWatch  bool
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.Port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.TLSMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.CertFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.KeyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().BoolVar(&serveFlags.JDWatch, "watch-jd", false, "Reload the job description file when it changes (overrides config)")
}

// applyServeOverrides copies explicitly set flags over the loaded config
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = serveFlags.Port
	}
	if flags.Changed("host") {
		cfg.Server.Host = serveFlags.Host
	}
	if flags.Changed("tls-mode") {
		cfg.Server.TLS.Mode = serveFlags.TLSMode
	}
	if flags.Changed("cert-file") {
		cfg.Server.TLS.CertFile = serveFlags.CertFile
	}
	if flags.Changed("key-file") {
		cfg.Server.TLS.KeyFile = serveFlags.KeyFile
	}
	if flags.Changed("watch-jd") {
		cfg.JobDescription.Watch = serveFlags.JDWatch
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeOverrides(cmd, cfg)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	store, err := openJobDescriptions(cfg, logger)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, logger, true)
	if err != nil {
		return err
	}
	defer p.Close()

	models := make(map[string]server.ModelStatus, len(p.runtime.Models))
	for role, svc := range p.runtime.Models {
		models[role] = svc
	}

	deps := server.Dependencies{
		Evaluator:       p.runtime.Evaluation,
		JobDescriptions: store,
		Models:          models,
		Observability:   p.observability,
	}
	return server.NewServer(cfg, server.ServerConfigFromApp(cfg, Version), deps, logger).Start(cmd.Context())
}
