package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

// VisionAnnotator implements BatchAnnotator and Extractor using the Google
// Cloud Vision API.
type VisionAnnotator struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionAnnotator creates a Vision annotator with credentials from the
// environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path or
// GOOGLE_CREDENTIALS JSON in env, falling back to application default
// credentials.
func NewVisionAnnotator(ctx context.Context) (*VisionAnnotator, error) {
	const op = "NewVisionAnnotator"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		// Use credentials file
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionAnnotator{
		client: client,
	}, nil
}

// NewVisionAnnotatorWithClient creates a Vision annotator with an explicit client (for testing).
func NewVisionAnnotatorWithClient(client *vision.ImageAnnotatorClient) *VisionAnnotator {
	return &VisionAnnotator{
		client: client,
	}
}

// AnnotateAsync submits one asynchronous batch annotation request against a
// GCS source and blocks until the long-running operation completes or ctx
// expires. The operation keeps running remotely after a context timeout.
func (v *VisionAnnotator) AnnotateAsync(ctx context.Context, req AsyncRequest) error {
	const op = "AnnotateAsync"

	apiReq := &visionpb.AsyncBatchAnnotateFilesRequest{
		Requests: []*visionpb.AsyncAnnotateFileRequest{
			{
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
				InputConfig: &visionpb.InputConfig{
					GcsSource: &visionpb.GcsSource{
						Uri: req.SourceURI,
					},
					MimeType: req.MimeType,
				},
				OutputConfig: &visionpb.OutputConfig{
					GcsDestination: &visionpb.GcsDestination{
						Uri: req.DestinationURI,
					},
					BatchSize: req.BatchSize,
				},
			},
		},
	}

	lro, err := v.client.AsyncBatchAnnotateFiles(ctx, apiReq)
	if err != nil {
		return WrapOCRError(op, err, "failed to submit batch annotation request")
	}

	if _, err := lro.Wait(ctx); err != nil {
		return WrapOCRError(op, err, "waiting for batch annotation operation")
	}

	return nil
}

// ExtractText extracts text from a small PDF document synchronously, sending
// the file content inline (no GCS upload required).
func (v *VisionAnnotator) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	const op = "ExtractText"

	pdfBytes, err := io.ReadAll(r)
	if err != nil {
		return "", WrapOCRError(op, err, "failed to read PDF data")
	}

	// Validate file size
	if len(pdfBytes) > MaxFileSizeBytes {
		return "", WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}

	// Validate PDF header
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return "", WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: mimeTypePDF,
				},
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	if len(resp.Responses) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	if len(fileResp.Responses) > MaxPagesSync {
		return "", WrapOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", len(fileResp.Responses)))
	}

	var text strings.Builder
	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("error processing page %d: %s", pageIdx+1, page.Error.Message))
		}
		if page.FullTextAnnotation != nil {
			text.WriteString(page.FullTextAnnotation.Text)
		}
	}

	return text.String(), nil
}

// Close closes the underlying Vision client.
func (v *VisionAnnotator) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
