package ocr

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

// fakeAnnotator records the submitted request and optionally writes output
// blobs into a store, standing in for the remote OCR service.
type fakeAnnotator struct {
	req      AsyncRequest
	called   bool
	err      error
	onSubmit func(req AsyncRequest)
}

func (f *fakeAnnotator) AnnotateAsync(_ context.Context, req AsyncRequest) error {
	f.called = true
	f.req = req
	if f.onSubmit != nil {
		f.onSubmit(req)
	}
	return f.err
}

func TestNewJobID(t *testing.T) {
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)

	a, b := newJobID(), newJobID()
	if !hex32.MatchString(a) {
		t.Errorf("newJobID() = %q, want 32 lower-hex characters", a)
	}
	if a == b {
		t.Errorf("newJobID() returned the same identifier twice: %q", a)
	}
}

func TestClearPrefixDeletesOnlyPrefix(t *testing.T) {
	store := newFakeStore()
	store.put("out", "ocr/a/output-1-to-2.json", "{}")
	store.put("out", "ocr/a/output-3-to-4.json", "{}")
	store.put("out", "ocr/ab/output-1-to-2.json", "{}")
	store.put("out", "other/file.json", "{}")

	svc := NewService(store, nil)
	if err := svc.ClearPrefix(context.Background(), "out", "ocr/a/"); err != nil {
		t.Fatalf("ClearPrefix returned error: %v", err)
	}

	wantDeleted := []string{"ocr/a/output-1-to-2.json", "ocr/a/output-3-to-4.json"}
	if !reflect.DeepEqual(store.deleted, wantDeleted) {
		t.Errorf("deleted = %v, want %v", store.deleted, wantDeleted)
	}

	remaining, _ := store.List(context.Background(), "out", "")
	wantRemaining := []string{"ocr/ab/output-1-to-2.json", "other/file.json"}
	if !reflect.DeepEqual(remaining, wantRemaining) {
		t.Errorf("remaining = %v, want %v", remaining, wantRemaining)
	}
}

func TestClearPrefixNoMatches(t *testing.T) {
	store := newFakeStore()
	store.put("out", "other/file.json", "{}")

	svc := NewService(store, nil)
	if err := svc.ClearPrefix(context.Background(), "out", "ocr/missing/"); err != nil {
		t.Fatalf("ClearPrefix returned error: %v", err)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none", store.deleted)
	}
}

func TestClearPrefixPropagatesDeleteError(t *testing.T) {
	deleteErr := errors.New("storage: permission denied")
	store := newFakeStore()
	store.put("out", "ocr/a/output-1-to-2.json", "{}")
	store.deleteErr = deleteErr

	svc := NewService(store, nil)
	if err := svc.ClearPrefix(context.Background(), "out", "ocr/a/"); !errors.Is(err, deleteErr) {
		t.Errorf("ClearPrefix error = %v, want %v", err, deleteErr)
	}
}

func TestExtractAsync(t *testing.T) {
	store := newFakeStore()
	annotator := &fakeAnnotator{}

	// Simulate the remote service writing its output under the prefix.
	annotator.onSubmit = func(req AsyncRequest) {
		prefix := strings.TrimPrefix(req.DestinationURI, "gs://out/")
		store.put("out", prefix+"output-3-to-4.json", pageBlob("World"))
		store.put("out", prefix+"output-1-to-2.json", pageBlob("Hello "))
	}

	svc := NewService(store, annotator)
	text, err := svc.ExtractAsync(context.Background(), "src", "docs/contract.pdf", "out", 0)
	if err != nil {
		t.Fatalf("ExtractAsync returned error: %v", err)
	}
	if text != "Hello World" {
		t.Errorf("ExtractAsync = %q, want %q", text, "Hello World")
	}

	if annotator.req.SourceURI != "gs://src/docs/contract.pdf" {
		t.Errorf("SourceURI = %q", annotator.req.SourceURI)
	}
	destRe := regexp.MustCompile(`^gs://out/ocr/[0-9a-f]{32}/$`)
	if !destRe.MatchString(annotator.req.DestinationURI) {
		t.Errorf("DestinationURI = %q, want match for %v", annotator.req.DestinationURI, destRe)
	}
	if annotator.req.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q", annotator.req.MimeType)
	}
	if annotator.req.BatchSize != 2 {
		t.Errorf("BatchSize = %d, want 2", annotator.req.BatchSize)
	}
}

// staleStore serves one stale object under whatever prefix is listed first, so
// the test can observe cleanup of a prior job's leftovers.
type staleStore struct {
	*fakeStore
	served bool
	stale  string
}

func (s *staleStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if !s.served {
		s.served = true
		s.stale = prefix + "/stale.json"
		s.put(bucket, s.stale, "{}")
	}
	return s.fakeStore.List(ctx, bucket, prefix)
}

func TestExtractAsyncClearsPrefixBeforeSubmit(t *testing.T) {
	store := &staleStore{fakeStore: newFakeStore()}
	annotator := &fakeAnnotator{}
	annotator.onSubmit = func(req AsyncRequest) {
		if len(store.deleted) != 1 || store.deleted[0] != store.stale {
			t.Errorf("at submit time deleted = %v, want [%s]", store.deleted, store.stale)
		}
	}

	svc := NewService(store, annotator)
	if _, err := svc.ExtractAsync(context.Background(), "src", "doc.pdf", "out", 0); err != nil {
		t.Fatalf("ExtractAsync returned error: %v", err)
	}
	if !annotator.called {
		t.Fatal("annotator was never invoked")
	}
}

func TestExtractAsyncAnnotatorErrorPropagates(t *testing.T) {
	annotatorErr := errors.New("vision: operation failed")
	annotator := &fakeAnnotator{err: annotatorErr}

	svc := NewService(newFakeStore(), annotator)
	if _, err := svc.ExtractAsync(context.Background(), "src", "doc.pdf", "out", 0); !errors.Is(err, annotatorErr) {
		t.Errorf("ExtractAsync error = %v, want wrapped %v", err, annotatorErr)
	}
}

func TestExtractAsyncCleanupErrorPropagates(t *testing.T) {
	listErr := errors.New("storage: bucket not found")
	store := newFakeStore()
	store.listErr = listErr
	annotator := &fakeAnnotator{}

	svc := NewService(store, annotator)
	if _, err := svc.ExtractAsync(context.Background(), "src", "doc.pdf", "out", 0); !errors.Is(err, listErr) {
		t.Errorf("ExtractAsync error = %v, want wrapped %v", err, listErr)
	}
	if annotator.called {
		t.Error("annotator was invoked despite cleanup failure")
	}
}

func TestExtractAsyncAppliesDefaultTimeout(t *testing.T) {
	store := newFakeStore()

	var deadline time.Time
	var hasDeadline bool
	annotator := &deadlineAnnotator{onCtx: func(ctx context.Context) {
		deadline, hasDeadline = ctx.Deadline()
	}}

	svc := NewService(store, annotator)
	start := time.Now()
	if _, err := svc.ExtractAsync(context.Background(), "src", "doc.pdf", "out", 0); err != nil {
		t.Fatalf("ExtractAsync returned error: %v", err)
	}

	if !hasDeadline {
		t.Fatal("annotator context has no deadline")
	}
	// The timeout context is created after start, so the measured window is
	// DefaultTimeout plus however long setup took.
	remaining := deadline.Sub(start)
	if remaining < DefaultTimeout || remaining > DefaultTimeout+5*time.Second {
		t.Errorf("deadline %v from start, want within [%v, %v]", remaining, DefaultTimeout, DefaultTimeout+5*time.Second)
	}
}

type deadlineAnnotator struct {
	onCtx func(ctx context.Context)
}

func (d *deadlineAnnotator) AnnotateAsync(ctx context.Context, _ AsyncRequest) error {
	d.onCtx(ctx)
	return nil
}
