package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"skrut/internal/errors"
	"skrut/internal/types"

	"github.com/go-playground/validator/v10"
)

const healthCheckTimeout = 10 * time.Second

// rootHandler reports liveness in the same shape the web client expects
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Mode: "privacy-focused"})
}

// healthHandler reports model availability and circuit breaker state per role
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "skrut",
		"version": s.Version,
	}

	aiStatus := make(map[string]any, len(s.Models))
	breakers := make(map[string]any, len(s.Models))
	overallHealthy := true
	for role, model := range s.Models {
		info := model.GetModelInfo(ctx)
		aiStatus[role] = info
		breakers[role] = model.GetCircuitBreakerStats()
		if info == nil || !info.Available {
			overallHealthy = false
		}
	}
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = breakers
	response["job_description_set"] = strings.TrimSpace(s.JobDescriptions.Get()) != ""

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "skrut",
		"version": s.Version,
		"server": map[string]any{
			"max_upload_size_bytes": s.MaxRequestSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	breakers := make(map[string]any, len(s.Models))
	for role, model := range s.Models {
		breakers[role] = model.GetCircuitBreakerStats()
	}
	response["circuit_breakers"] = breakers

	if s.jdWatch != nil {
		response["job_description_watcher"] = map[string]any{
			"running": s.jdWatch.IsRunning(),
			"file":    s.JobDescriptions.Path(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// getJobDescriptionHandler returns the stored job description, empty when unset
func (s *Server) getJobDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.JobDescription{Content: s.JobDescriptions.Get()})
}

// setJobDescriptionHandler replaces the stored job description. The content
// may come as JSON, a form field or a query parameter.
func (s *Server) setJobDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req JobDescriptionRequest
	if err := parseJobDescriptionRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	if err := s.JobDescriptions.Set(req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Observability.RecordJobDescriptionUpdate(r.Context(), "api")

	s.Logger.Info("Job description updated via API",
		"request_id", requestIDFrom(r.Context()),
		"length", len(req.Content))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Job description updated"})
}

func parseJobDescriptionRequest(r *http.Request, req *JobDescriptionRequest) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := parseJSONRequest(r, req); err != nil {
			return err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 10); err != nil {
			return requestBodyError(err)
		}
		req.Content = r.FormValue("content")
	default:
		if err := r.ParseForm(); err != nil {
			return requestBodyError(err)
		}
		req.Content = r.FormValue("content")
	}
	return nil
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return requestBodyError(err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}
	return nil
}

func requestBodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err).
			WithContext("status", http.StatusRequestEntityTooLarge)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
}

// validationError flattens validator errors into a single message
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, strings.Join(fields, "; "), err)
}

// statusFor maps an error to its HTTP status and the client facing message
func statusFor(err error) (int, string, string) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError, "Internal server error", "evaluation failed"
	}

	switch appErr.Code {
	case errors.ErrCodeIngestionFailed:
		return http.StatusBadRequest, "Could not extract text from resume.", appErr.Message
	case errors.ErrCodeMissingJobDescription:
		return http.StatusBadRequest, "Job description not found.", appErr.Message
	case errors.ErrCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType, "Unsupported media type", appErr.Message
	case errors.ErrCodeInvalidRequest:
		if status, ok := appErr.Context["status"].(int); ok {
			return status, "Request too large", appErr.Message
		}
		return http.StatusBadRequest, "Invalid request", appErr.Message
	default:
		return http.StatusInternalServerError, "Internal server error", appErr.Message
	}
}

// writeError logs err and writes the mapped error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed",
			"endpoint", r.URL.Path,
			"request_id", requestIDFrom(r.Context()))
	} else {
		s.Logger.Info("Request rejected",
			"endpoint", r.URL.Path,
			"status", status,
			"request_id", requestIDFrom(r.Context()),
			"error", err.Error())
	}
	writeErrorResponse(w, title, message, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
