package docai

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"doctext/internal/ocr"
)

func testProcessor() *Processor {
	// Validation happens before any API call, so no client is needed.
	return NewProcessorWithConfig(Config{
		ProjectID:   "my-project",
		Location:    "eu",
		ProcessorID: "proc-123",
		Timeout:     time.Minute,
	}, nil)
}

func TestExtractTextRejectsOversizedDocument(t *testing.T) {
	p := testProcessor()

	oversized := make([]byte, MaxDocumentSizeBytes+1)
	copy(oversized, "%PDF")

	_, err := p.ExtractText(context.Background(), bytes.NewReader(oversized))
	if !errors.Is(err, ocr.ErrPDFTooLarge) {
		t.Errorf("ExtractText error = %v, want ErrPDFTooLarge", err)
	}
}

func TestExtractTextRejectsMissingPDFHeader(t *testing.T) {
	tests := []string{
		"not a pdf at all",
		"%P",
		"",
	}

	p := testProcessor()
	for _, input := range tests {
		_, err := p.ExtractText(context.Background(), strings.NewReader(input))
		if !errors.Is(err, ocr.ErrInvalidPDF) {
			t.Errorf("ExtractText(%q) error = %v, want ErrInvalidPDF", input, err)
		}
	}
}

func TestExtractTextPropagatesReadError(t *testing.T) {
	readErr := errors.New("read failed")
	p := testProcessor()

	_, err := p.ExtractText(context.Background(), &failingReader{err: readErr})
	if !errors.Is(err, readErr) {
		t.Errorf("ExtractText error = %v, want wrapped %v", err, readErr)
	}
}

func TestProcessorName(t *testing.T) {
	p := testProcessor()

	want := "projects/my-project/locations/eu/processors/proc-123"
	if got := p.processorName(); got != want {
		t.Errorf("processorName() = %q, want %q", got, want)
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
