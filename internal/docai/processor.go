// Package docai extracts document text with a Google Document AI OCR
// processor, as an alternative engine to Cloud Vision for local files.
package docai

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"doctext/internal/logger"
	"doctext/internal/ocr"
)

// MaxDocumentSizeBytes is the maximum document size for online processing (20MB)
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Config holds the Document AI processor coordinates.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// Processor implements ocr.Extractor using Google Document AI.
type Processor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewProcessor creates a processor with credentials and coordinates from the
// environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID
// Optional: GOOGLE_CLOUD_LOCATION (default "us")
func NewProcessor(ctx context.Context) (*Processor, error) {
	config := Config{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, fmt.Errorf("docai: GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, fmt.Errorf("docai: DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption

	// Non-US processors live behind regional endpoints
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("docai: failed to create client for location %s: %w", config.Location, err)
	}

	return &Processor{
		client: client,
		config: config,
		log:    logger.WithComponent("docai"),
	}, nil
}

// NewProcessorWithConfig creates a processor with explicit config and client (for testing).
func NewProcessorWithConfig(config Config, client *documentai.DocumentProcessorClient) *Processor {
	return &Processor{
		client: client,
		config: config,
		log:    logger.WithComponent("docai"),
	}
}

// ExtractText runs the document through the configured OCR processor and
// returns its full text.
func (p *Processor) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("docai: failed to read document: %w", err)
	}

	if len(data) > MaxDocumentSizeBytes {
		return "", fmt.Errorf("docai: document too large (%d bytes): %w", len(data), ocr.ErrPDFTooLarge)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return "", fmt.Errorf("docai: missing PDF header: %w", ocr.ErrInvalidPDF)
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return "", fmt.Errorf("docai: processing failed: %w", err)
	}

	doc := resp.GetDocument()
	if doc == nil {
		return "", fmt.Errorf("docai: empty response from processor")
	}

	p.log.Debug().
		Int("pages", len(doc.GetPages())).
		Int("text_length", len(doc.GetText())).
		Msg("Document processed")

	return doc.GetText(), nil
}

func (p *Processor) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// Close closes the underlying Document AI client.
func (p *Processor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
