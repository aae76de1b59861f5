// Package ingest turns uploaded resume documents into plain text.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"skrut/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

// Supported content types, detected from the bytes rather than the filename
const (
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
)

// Extractor extracts resume text from PDF and plain text uploads
type Extractor struct {
	minTextLength int
	tempDir       string
	logger        *errors.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithTempDir sets where PDF uploads are spooled. Defaults to os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Extractor) { e.tempDir = dir }
}

// NewExtractor creates an extractor. Text shorter than minTextLength runes
// after trimming counts as no text.
func NewExtractor(minTextLength int, logger *errors.Logger, opts ...Option) *Extractor {
	if minTextLength < 1 {
		minTextLength = 1
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	e := &Extractor{minTextLength: minTextLength, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectType returns the sniffed content type if it is supported
func DetectType(data []byte) (string, bool) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is(MIMEPDF):
		return MIMEPDF, true
	case mtype.Is(MIMEText):
		return MIMEText, true
	default:
		return mtype.String(), false
	}
}

// Extract returns the text of the document. Unsupported content yields an
// UNSUPPORTED_MEDIA_TYPE error, a document without usable text yields
// INGESTION_FAILED.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ingestionFailed(filename, nil)
	}

	mtype, ok := DetectType(data)
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedMedia,
			fmt.Sprintf("unsupported media type %s", mtype), nil).
			WithContext("filename", filename).
			WithContext("mime", mtype)
	}

	var text string
	switch mtype {
	case MIMEPDF:
		extracted, err := e.spoolPDF(ctx, data)
		if err != nil {
			e.logger.LogError(err, "PDF text extraction failed", "filename", filename)
			return "", ingestionFailed(filename, err)
		}
		text = extracted
	default:
		if !utf8.Valid(data) {
			return "", ingestionFailed(filename, fmt.Errorf("text upload is not valid UTF-8"))
		}
		text = string(data)
	}

	text = normalizeText(text)
	if utf8.RuneCountInString(text) < e.minTextLength {
		e.logger.Warn("No text layer found in document",
			"filename", filename,
			"mime", mtype,
			"text_length", len(text))
		return "", ingestionFailed(filename, nil)
	}

	e.logger.Debug("Extracted resume text",
		"filename", filename,
		"mime", mtype,
		"text_length", len(text))
	return text, nil
}

func ingestionFailed(filename string, cause error) error {
	return errors.NewValidationError(errors.ErrCodeIngestionFailed,
		"could not extract text from resume", cause).
		WithContext("filename", filename)
}

// normalizeText trims each line and drops blank runs
func normalizeText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
