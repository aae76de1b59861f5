package server

import (
	"context"
	"time"

	"skrut/internal/ai"
	"skrut/internal/config"
	"skrut/internal/errors"
	"skrut/internal/evaluation"
	"skrut/internal/jobdesc"
	"skrut/internal/observability"
	"skrut/internal/types"

	"github.com/go-playground/validator/v10"
)

// StatusResponse is returned by the root endpoint
type StatusResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JobDescriptionRequest is the body of POST /job-description
type JobDescriptionRequest struct {
	Content string `json:"content" validate:"required,max=100000"`
}

// Evaluator runs evaluations. *evaluation.Service implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (*types.EvaluationResult, error)
	EvaluateStream(ctx context.Context, req evaluation.Request, sink evaluation.ProgressSink) (*types.EvaluationResult, error)
}

// ModelStatus reports availability of one configured role model
type ModelStatus interface {
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upload size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Evaluator       Evaluator
	JobDescriptions *jobdesc.Store
	Models          map[string]ModelStatus
	Observability   *observability.ObservabilityManager

	validate *validator.Validate
	jdWatch  *jobdesc.Watcher

	// Logger
	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies are the collaborators the handlers call into
type Dependencies struct {
	Evaluator       Evaluator
	JobDescriptions *jobdesc.Store
	Models          map[string]ModelStatus
	Observability   *observability.ObservabilityManager
}

// ServerConfigFromApp derives the server settings from the application config
func ServerConfigFromApp(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxUploadSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(*cfg.RateLimit, logger)
	}

	store := deps.JobDescriptions
	if store == nil {
		store, _ = jobdesc.NewStore("", logger)
	}

	om := deps.Observability
	if om == nil {
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, nil)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		Evaluator:       deps.Evaluator,
		JobDescriptions: store,
		Models:          deps.Models,
		Observability:   om,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		Logger:          logger,
	}
}
