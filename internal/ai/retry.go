package ai

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"skrut/internal/config"
	"skrut/internal/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// retrier retries transient provider failures of a single model call
type retrier struct {
	role       string
	maxRetries int
	cfg        config.BackoffConfig
	logger     *errors.Logger
}

func newRetrier(role string, cfg *config.OperationAIConfig, logger *errors.Logger) *retrier {
	maxRetries := 0
	if cfg.MaxRetries != nil {
		maxRetries = *cfg.MaxRetries
	}
	return &retrier{role: role, maxRetries: maxRetries, cfg: cfg.Backoff, logger: logger}
}

func (r *retrier) backOff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		expo.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		expo.MaxInterval = r.cfg.MaxInterval
	}
	if r.cfg.Multiplier > 0 {
		expo.Multiplier = r.cfg.Multiplier
	}
	// attempt count bounds the loop, the call timeout bounds each attempt
	expo.MaxElapsedTime = 0
	return expo
}

// retry runs fn until it succeeds, fails permanently, or the retry budget is spent
func retry[T any](ctx context.Context, r *retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	attempt := 0

	op := func() error {
		attempt++
		out, err := fn(ctx)
		if err == nil {
			result = out
			return nil
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if r.logger == nil {
			return
		}
		r.logger.Warn("Retrying AI call",
			"role", r.role,
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"wait", wait.String(),
			"error", err.Error())
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(r.backOff(), uint64(r.maxRetries)), ctx)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		if r.logger != nil && attempt > 1 {
			r.logger.LogError(err, "AI call failed after all retry attempts",
				"role", r.role,
				"total_attempts", attempt)
		}
		return result, err
	}

	if r.logger != nil && attempt > 1 {
		r.logger.Info("AI call succeeded after retry",
			"role", r.role,
			"successful_attempt", attempt)
	}
	return result, nil
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network errors (timeouts, connection issues)
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return isRetryableStatus(genaiErr.Code)
	}

	var openaiErr *openai.Error
	if stderrors.As(err, &openaiErr) {
		return isRetryableStatus(openaiErr.StatusCode)
	}

	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
