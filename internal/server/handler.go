package server

import (
	"io"
	"net/http"
	"strings"

	"skrut/internal/errors"
	"skrut/internal/evaluation"
)

const multipartMemory = 1 << 20

// evaluateHandler runs a full evaluation of an uploaded resume
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseEvaluationRequest(r)
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.Logger.Info("Starting evaluation",
		"request_id", requestIDFrom(r.Context()),
		"filename", req.FileName,
		"size", len(req.Document))

	result, err := s.Evaluator.Evaluate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// evaluateStreamHandler runs an evaluation and streams progress as
// Server-Sent Events. A client disconnect cancels the run.
func (s *Server) evaluateStreamHandler(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseEvaluationRequest(r)
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	requestID := requestIDFrom(r.Context())
	stream := newEventStream(w)

	sink := func(ev evaluation.ProgressEvent) {
		if err := stream.Send("progress", ev); err != nil {
			s.Logger.Debug("Failed to send progress event", "request_id", requestID, "error", err)
		}
	}

	result, err := s.Evaluator.EvaluateStream(r.Context(), req, sink)
	if err != nil {
		if r.Context().Err() != nil {
			s.Logger.Info("Client disconnected, evaluation canceled", "request_id", requestID)
			return
		}
		status, title, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.Logger.LogError(err, "Streaming evaluation failed", "request_id", requestID)
		}
		_ = stream.Send("error", map[string]any{
			"status":  status,
			"error":   title,
			"message": message,
		})
		return
	}

	if err := stream.Send("result", result); err != nil {
		s.Logger.LogError(err, "Failed to send result event", "request_id", requestID)
	}
}

// parseEvaluationRequest reads the multipart upload. The returned cleanup
// removes any parts the multipart reader spooled to disk.
func (s *Server) parseEvaluationRequest(r *http.Request) (evaluation.Request, func(), error) {
	cleanup := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return evaluation.Request{}, cleanup, requestBodyError(err)
	}
	if r.MultipartForm != nil {
		cleanup = func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.Logger.Warn("Failed to remove spooled upload", "error", err)
			}
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return evaluation.Request{}, cleanup,
			errors.NewValidationError(errors.ErrCodeInvalidRequest, "multipart field 'file' is required", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return evaluation.Request{}, cleanup, requestBodyError(err)
	}

	jobDescription := r.FormValue("job_description")
	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = s.JobDescriptions.Get()
	}

	return evaluation.Request{
		FileName:       header.Filename,
		Document:       data,
		JobDescription: jobDescription,
	}, cleanup, nil
}
