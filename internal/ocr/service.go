// Package ocr extracts text from PDF/TIFF documents using Google Cloud Vision API.
//
// Large documents are processed asynchronously: the source file lives in a GCS
// bucket, Vision writes paginated JSON results under a per-job output prefix in
// a destination bucket, and this package reassembles those results into one
// ordered text string. Small local files can be processed synchronously with
// inline content instead (no GCS round-trip).
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API Limitations:
//   - Synchronous processing: maximum 20MB and 5 pages per file
//   - Asynchronous processing: PDF/TIFF sources must be in Cloud Storage
//   - Output files group up to batch-size source pages each
package ocr

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"doctext/internal/logger"
)

const (
	// DefaultTimeout bounds the wait on the asynchronous OCR operation.
	DefaultTimeout = 420 * time.Second

	// outputBatchSize is the number of source pages Vision groups into one
	// output JSON file.
	outputBatchSize = 2

	mimeTypePDF = "application/pdf"
)

// Extractor extracts text from a single document read from r.
type Extractor interface {
	ExtractText(ctx context.Context, r io.Reader) (string, error)
}

// ObjectStore is the subset of object-storage operations the pipeline needs.
// Implemented by internal/gcs for Cloud Storage; tests inject an in-memory fake.
type ObjectStore interface {
	// List returns the names of all objects in bucket whose name starts
	// with prefix, in the store's listing order.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Read returns the full content of one object.
	Read(ctx context.Context, bucket, name string) ([]byte, error)

	// Delete removes one object.
	Delete(ctx context.Context, bucket, name string) error
}

// AsyncRequest describes one asynchronous batch OCR submission.
type AsyncRequest struct {
	// SourceURI is the gs:// URI of the PDF/TIFF file to annotate.
	SourceURI string

	// DestinationURI is the gs:// URI prefix (with trailing slash) where
	// the service writes its paginated JSON output.
	DestinationURI string

	// MimeType of the source file, e.g. "application/pdf".
	MimeType string

	// BatchSize is how many source pages the service groups into one
	// output file.
	BatchSize int32
}

// BatchAnnotator submits one asynchronous OCR batch and blocks until the
// remote operation completes or ctx expires.
type BatchAnnotator interface {
	AnnotateAsync(ctx context.Context, req AsyncRequest) error
}

// Service orchestrates the asynchronous OCR pipeline: prefix cleanup,
// submission, wait, and output collection.
type Service struct {
	store     ObjectStore
	annotator BatchAnnotator
	log       zerolog.Logger
}

// NewService creates a Service with explicit collaborators.
func NewService(store ObjectStore, annotator BatchAnnotator) *Service {
	return &Service{
		store:     store,
		annotator: annotator,
		log:       logger.WithComponent("ocr"),
	}
}

// ExtractAsync performs OCR on a PDF/TIFF file stored in GCS and returns the
// complete recognized text in page order.
//
// A fresh job identifier namespaces the output under "ocr/<id>/" in
// outputBucket. Any objects already under that prefix are deleted before
// submission so collection only ever sees this job's results. The call blocks
// until the remote operation finishes or timeout elapses; a timeout fails the
// call, it does not cancel the remote operation.
func (s *Service) ExtractAsync(ctx context.Context, bucket, name, outputBucket string, timeout time.Duration) (string, error) {
	const op = "ExtractAsync"

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	prefix := "ocr/" + newJobID()
	log := s.log.With().Str("job_prefix", prefix).Logger()

	if err := s.ClearPrefix(ctx, outputBucket, prefix); err != nil {
		return "", WrapOCRError(op, err, "failed to clear previous output")
	}

	sourceURI := fmt.Sprintf("gs://%s/%s", bucket, name)
	destinationURI := fmt.Sprintf("gs://%s/%s/", outputBucket, prefix)

	log.Info().
		Str("source", sourceURI).
		Str("destination", destinationURI).
		Dur("timeout", timeout).
		Msg("Submitting asynchronous OCR request")

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.annotator.AnnotateAsync(waitCtx, AsyncRequest{
		SourceURI:      sourceURI,
		DestinationURI: destinationURI,
		MimeType:       mimeTypePDF,
		BatchSize:      outputBatchSize,
	})
	if err != nil {
		return "", WrapOCRError(op, err, "asynchronous annotation failed")
	}

	log.Debug().Msg("Operation finished, collecting output")

	return s.Collect(ctx, destinationURI, outputBucket)
}

// newJobID returns a random 32-character lower-hex job identifier.
func newJobID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
