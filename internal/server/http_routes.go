package server

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := s.setupRoutes()

	var handler http.Handler = mux
	handler = s.Observability.HTTPMiddleware()(handler)
	handler = s.corsMiddleware()(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// setupRoutes configures all HTTP routes and per-route middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimitHandler := s.rateLimitMiddleware()
	requestLimitHandler := s.requestSizeLimitMiddleware()

	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /job-description", s.getJobDescriptionHandler)
	mux.HandleFunc("POST /job-description",
		rateLimitHandler(requestLimitHandler(s.setJobDescriptionHandler)),
	)
	mux.HandleFunc("POST /evaluate",
		rateLimitHandler(requestLimitHandler(s.evaluateHandler)),
	)
	mux.HandleFunc("POST /evaluate/stream",
		rateLimitHandler(requestLimitHandler(s.evaluateStreamHandler)),
	)

	if handler := s.Observability.PrometheusHandler(); handler != nil && s.AppConfig != nil {
		endpoint := s.AppConfig.Observability.Prometheus.Endpoint
		if endpoint != "" && endpoint != "/" {
			mux.Handle("GET "+endpoint, handler)
		}
	}

	return mux
}

// corsMiddleware allows browser clients from any origin by default
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
	if s.AppConfig != nil {
		c := s.AppConfig.Server.CORS
		if len(c.AllowedOrigins) > 0 {
			opts.AllowedOrigins = c.AllowedOrigins
		}
		if len(c.AllowedMethods) > 0 {
			opts.AllowedMethods = c.AllowedMethods
		}
		if len(c.AllowedHeaders) > 0 {
			opts.AllowedHeaders = c.AllowedHeaders
		}
		opts.AllowCredentials = c.AllowCredentials
		if c.MaxAge > 0 {
			opts.MaxAge = c.MaxAge
		}
	}
	return cors.Handler(opts)
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// requestIDMiddleware propagates X-Request-ID, generating one when absent
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
