package cli

import (
	"context"
	"time"

	"skrut/internal/common"
	"skrut/internal/config"
	"skrut/internal/errors"
	"skrut/internal/jobdesc"
	"skrut/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// pipeline bundles what a model-calling command needs
type pipeline struct {
	runtime       *common.Runtime
	observability *observability.ObservabilityManager
	logger        *errors.Logger
}

// newPipeline validates model credentials and builds observability plus the
// evaluation runtime. The Prometheus port is only opened for serve.
func newPipeline(cfg *config.Config, logger *errors.Logger, serving bool) (*pipeline, error) {
	if err := cfg.ValidateForModels(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "Model credentials are not configured", err)
	}

	var opts []observability.Option
	if !serving {
		opts = append(opts, observability.WithoutPrometheusServer())
	}
	om, err := observability.NewObservabilityManager(
		observability.GetObservabilityConfig(cfg, Version), cfg, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to initialize observability", err)
	}

	rt, err := common.NewRuntime(cfg, logger, om)
	if err != nil {
		shutdownObservability(om, logger)
		return nil, err
	}

	return &pipeline{runtime: rt, observability: om, logger: logger}, nil
}

// Close releases model clients and flushes telemetry
func (p *pipeline) Close() {
	if err := p.runtime.Close(); err != nil {
		p.logger.Warn("Failed to close runtime", "error", err)
	}
	shutdownObservability(p.observability, p.logger)
}

func shutdownObservability(om *observability.ObservabilityManager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down observability", "error", err)
	}
}

// openJobDescriptions opens the configured job description store
func openJobDescriptions(cfg *config.Config, logger *errors.Logger) (*jobdesc.Store, error) {
	return jobdesc.NewStore(cfg.JobDescription.File, logger)
}
