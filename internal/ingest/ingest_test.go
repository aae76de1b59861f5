package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"skrut/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a one page PDF whose text layer is the given lines
func buildPDF(lines ...string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 72 712 Td")
	for i, line := range lines {
		if i > 0 {
			content.WriteString(" 0 -16 Td")
		}
		fmt.Fprintf(&content, " (%s) Tj", line)
	}
	content.WriteString(" ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestExtractPDF(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(1, errors.NewNopLogger(), WithTempDir(dir))

	text, err := e.Extract(context.Background(), "cv.pdf", buildPDF("Jane", "Golang"))
	require.NoError(t, err)
	assert.Contains(t, text, "Jane")
	assert.Contains(t, text, "Golang")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spooled upload must be removed")
}

func TestExtractPDFWithoutTextLayer(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(1, errors.NewNopLogger(), WithTempDir(dir))

	_, err := e.Extract(context.Background(), "scan.pdf", buildPDF())
	requireCode(t, err, errors.ErrCodeIngestionFailed)
	assert.ErrorIs(t, err, errors.ErrIngestionFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractMalformedPDF(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(1, nil, WithTempDir(dir))

	_, err := e.Extract(context.Background(), "broken.pdf", []byte("%PDF-1.4\nthis is not a real pdf body"))
	requireCode(t, err, errors.ErrCodeIngestionFailed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(1, nil)

	text, err := e.Extract(context.Background(), "cv.md", []byte("# Jane Doe\r\n\r\n  Go developer  \n\n\nBangkok"))
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe\nGo developer\nBangkok", text)

	thai, err := e.Extract(context.Background(), "cv.txt", []byte("ชื่อ: สมชาย ใจดี"))
	require.NoError(t, err)
	assert.Equal(t, "ชื่อ: สมชาย ใจดี", thai)
}

func TestExtractRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code string
	}{
		{name: "empty upload", data: nil, code: errors.ErrCodeIngestionFailed},
		{name: "whitespace only", data: []byte(" \n\t \n"), code: errors.ErrCodeIngestionFailed},
		{name: "png image", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), code: errors.ErrCodeUnsupportedMedia},
		{name: "zip archive", data: []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), code: errors.ErrCodeUnsupportedMedia},
	}

	e := NewExtractor(1, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), "upload", tt.data)
			requireCode(t, err, tt.code)
		})
	}
}

func TestExtractMinTextLength(t *testing.T) {
	e := NewExtractor(50, nil)
	_, err := e.Extract(context.Background(), "short.txt", []byte("too short"))
	requireCode(t, err, errors.ErrCodeIngestionFailed)
}

func TestDetectType(t *testing.T) {
	mtype, ok := DetectType(buildPDF("x"))
	assert.True(t, ok)
	assert.Equal(t, MIMEPDF, mtype)

	mtype, ok = DetectType([]byte("plain resume"))
	assert.True(t, ok)
	assert.Equal(t, MIMEText, mtype)

	_, ok = DetectType([]byte("\x89PNG\r\n\x1a\n"))
	assert.False(t, ok)
}
