package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"skrut/internal/ai"
	"skrut/internal/config"
	"skrut/internal/errors"
	"skrut/internal/evaluation"
	"skrut/internal/jobdesc"
	"skrut/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	mu       sync.Mutex
	requests []evaluation.Request
	result   *types.EvaluationResult
	err      error
	events   []evaluation.ProgressEvent
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req evaluation.Request) (*types.EvaluationResult, error) {
	return f.EvaluateStream(ctx, req, nil)
}

func (f *fakeEvaluator) EvaluateStream(ctx context.Context, req evaluation.Request, sink evaluation.ProgressSink) (*types.EvaluationResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	for _, ev := range f.events {
		if sink != nil {
			sink(ev)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEvaluator) lastRequest(t *testing.T) evaluation.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type fakeModel struct {
	available bool
}

func (m fakeModel) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "gpt-4o-mini", Provider: "openai", Available: m.available}
}

func (m fakeModel) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"enabled": true, "state": "closed"}
}

var sampleResult = &types.EvaluationResult{
	Score:          "8.5",
	CandidateName:  "Jane Doe",
	Email:          "jane@example.com",
	Recommendation: "Hire",
	Analysis:       "Name: Jane Doe\nScore: 8.5",
	ConversationLog: []types.TranscriptEntry{
		{Role: types.RoleReviewer, Content: "Name: Jane Doe\nScore: 8.5", TurnIndex: 1},
		{Role: types.RoleAuditor, Content: "PASS", TurnIndex: 1},
	},
}

func newTestServer(t *testing.T, eval *fakeEvaluator, mutate func(*ServerConfig)) (*Server, http.Handler) {
	t.Helper()
	store, err := jobdesc.NewStore("", nil)
	require.NoError(t, err)

	cfg := ServerConfig{Host: "127.0.0.1", Port: "0", Version: "test", MaxRequestSize: 1 << 20}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(nil, cfg, Dependencies{
		Evaluator:       eval,
		JobDescriptions: store,
		Models: map[string]ModelStatus{
			"reviewer": fakeModel{available: true},
			"auditor":  fakeModel{available: true},
		},
	}, errors.NewNopLogger())
	t.Cleanup(srv.cleanup)
	return srv, srv.Handler()
}

func multipartUpload(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRootHandler(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusResponse{Status: "ok", Mode: "privacy-focused"}, decode[StatusResponse](t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownPathIs404(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobDescriptionRoundTrip(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job-description", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode[types.JobDescription](t, rec).Content)

	tests := []struct {
		name    string
		request func() *http.Request
		want    string
	}{
		{
			name: "json body",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/job-description",
					strings.NewReader(`{"content":"Senior Go Engineer"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			want: "Senior Go Engineer",
		},
		{
			name: "url encoded form",
			request: func() *http.Request {
				form := url.Values{"content": {"Backend developer"}}
				req := httptest.NewRequest(http.MethodPost, "/job-description", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			want: "Backend developer",
		},
		{
			name: "multipart form",
			request: func() *http.Request {
				return multipartUpload(t, "/job-description", "", nil, map[string]string{"content": "นักพัฒนา Go"})
			},
			want: "นักพัฒนา Go",
		},
		{
			name: "query parameter",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/job-description?content=Data+engineer", nil)
			},
			want: "Data engineer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.request())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "Job description updated", decode[MessageResponse](t, rec).Message)

			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job-description", nil))
			assert.Equal(t, tt.want, decode[types.JobDescription](t, rec).Content)
		})
	}
}

func TestSetJobDescriptionRejects(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, func(c *ServerConfig) { c.MaxRequestSize = 64 })

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "missing content", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed json", body: `{"content":`, status: http.StatusBadRequest},
		{name: "too large", body: `{"content":"` + strings.Repeat("x", 200) + `"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/job-description", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestEvaluateUsesStoredJobDescription(t *testing.T) {
	eval := &fakeEvaluator{result: sampleResult}
	srv, handler := newTestServer(t, eval, nil)
	require.NoError(t, srv.JobDescriptions.Set("Stored JD"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/evaluate", "cv.pdf", []byte("%PDF-1.4"), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[types.EvaluationResult](t, rec)
	assert.Equal(t, *sampleResult, got)

	req := eval.lastRequest(t)
	assert.Equal(t, "cv.pdf", req.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), req.Document)
	assert.Equal(t, "Stored JD", req.JobDescription)
}

func TestEvaluateJobDescriptionOverride(t *testing.T) {
	eval := &fakeEvaluator{result: sampleResult}
	srv, handler := newTestServer(t, eval, nil)
	require.NoError(t, srv.JobDescriptions.Set("Stored JD"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/evaluate", "cv.txt", []byte("resume"),
		map[string]string{"job_description": "Request JD"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Request JD", eval.lastRequest(t).JobDescription)
	assert.Equal(t, "Stored JD", srv.JobDescriptions.Get())
}

func TestEvaluateErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{
			name:   "no text",
			err:    errors.NewValidationError(errors.ErrCodeIngestionFailed, "could not extract text from resume", nil),
			status: http.StatusBadRequest,
			title:  "Could not extract text from resume.",
		},
		{
			name:   "no job description",
			err:    errors.NewValidationError(errors.ErrCodeMissingJobDescription, "job description not found", nil),
			status: http.StatusBadRequest,
			title:  "Job description not found.",
		},
		{
			name:   "unsupported media",
			err:    errors.NewValidationError(errors.ErrCodeUnsupportedMedia, "unsupported media type image/png", nil),
			status: http.StatusUnsupportedMediaType,
			title:  "Unsupported media type",
		},
		{
			name:   "model failure",
			err:    errors.NewAIError(errors.ErrCodeModelCallFailed, "reviewer call failed", nil),
			status: http.StatusInternalServerError,
			title:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, handler := newTestServer(t, &fakeEvaluator{err: tt.err}, nil)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, multipartUpload(t, "/evaluate", "cv.pdf", []byte("x"), nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.title, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestEvaluateRequiresFile(t *testing.T) {
	eval := &fakeEvaluator{result: sampleResult}
	_, handler := newTestServer(t, eval, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/evaluate", "", nil, map[string]string{"job_description": "JD"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, eval.requests)
}

func TestEvaluateStream(t *testing.T) {
	eval := &fakeEvaluator{
		result: sampleResult,
		events: []evaluation.ProgressEvent{
			{Role: types.RoleReviewer, Attempt: 1, Message: "Reviewer is thinking (Attempt 1)"},
			{Role: types.RoleAuditor, Attempt: 1, Message: "Auditor is verifying (Attempt 1)"},
		},
	}
	_, handler := newTestServer(t, eval, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/evaluate/stream", "cv.txt", []byte("resume"),
		map[string]string{"job_description": "JD"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: progress\n"))
	assert.Contains(t, body, "Reviewer is thinking (Attempt 1)")
	assert.Contains(t, body, "event: result\n")
	assert.Less(t, strings.Index(body, "event: progress"), strings.Index(body, "event: result"))
	assert.Contains(t, body, `"candidate_name":"Jane Doe"`)
}

func TestEvaluateStreamError(t *testing.T) {
	eval := &fakeEvaluator{err: errors.NewValidationError(errors.ErrCodeMissingJobDescription, "job description not found", nil)}
	_, handler := newTestServer(t, eval, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/evaluate/stream", "cv.txt", []byte("resume"), nil))

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "Job description not found.")
	assert.NotContains(t, body, "event: result")
}

func TestRateLimit(t *testing.T) {
	eval := &fakeEvaluator{result: sampleResult}
	_, handler := newTestServer(t, eval, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, multipartUpload(t, "/evaluate", "cv.txt", []byte("resume"), map[string]string{"job_description": "JD"}))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, multipartUpload(t, "/evaluate", "cv.txt", []byte("resume"), map[string]string{"job_description": "JD"}))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	// read-only endpoints are not limited
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job-description", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterReserve(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 2, BurstCapacity: 2, Window: time.Second}, errors.NewNopLogger())
	defer rl.Close()

	for range 2 {
		ok, wait := rl.Reserve("ip:10.0.0.1")
		assert.True(t, ok)
		assert.Zero(t, wait)
	}
	ok, wait := rl.Reserve("ip:10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Second)

	// other clients have their own bucket
	ok, _ = rl.Reserve("ip:10.0.0.2")
	assert.True(t, ok)
	assert.Equal(t, 2, rl.GetStats()["active_clients"])

	rl.evictIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 0, rl.GetStats()["active_clients"])
}

func TestHealthHandler(t *testing.T) {
	srv, handler := newTestServer(t, &fakeEvaluator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Contains(t, health["circuit_breakers"], "reviewer")

	srv.Models["auditor"] = fakeModel{available: false}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestStatsHandler(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
}

func TestCORSPreflight(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/evaluate", nil)
	req.Header.Set("Origin", "https://skrut.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagation(t *testing.T) {
	_, handler := newTestServer(t, &fakeEvaluator{}, nil)

	id := "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-ID"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "garbage, 10.0.0.7, 10.0.0.8"}, remote: "1.2.3.4:5", want: "10.0.0.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.1.1.1"}, remote: "1.2.3.4:5", want: "10.1.1.1"},
		{name: "remote addr", remote: "192.168.1.9:4444", want: "192.168.1.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
