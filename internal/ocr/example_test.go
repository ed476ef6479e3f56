package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"doctext/internal/gcs"
	"doctext/internal/ocr"
)

// Example demonstrates the asynchronous GCS extraction pipeline.
func Example() {
	// Load .env file (using godotenv in main)
	// This should be done in your main() function:
	//
	// if err := godotenv.Load(); err != nil {
	//     log.Printf("Warning: Could not load .env file: %v", err)
	// }

	ctx := context.Background()

	// Create clients - credentials handled internally from environment
	store, err := gcs.NewClient(ctx)
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}
	defer store.Close()

	annotator, err := ocr.NewVisionAnnotator(ctx)
	if err != nil {
		log.Fatalf("Failed to create Vision annotator: %v", err)
	}
	defer annotator.Close()

	service := ocr.NewService(store, annotator)

	// Extract text from gs://my-docs/contract.pdf, output staged in my-ocr-output
	text, err := service.ExtractAsync(ctx, "my-docs", "contract.pdf", "my-ocr-output", 7*time.Minute)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	fmt.Printf("Extracted text (%d characters):\n%s\n", len(text), text)
}

// ExampleVisionAnnotator_ExtractText demonstrates synchronous extraction of a
// small local PDF.
func ExampleVisionAnnotator_ExtractText() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	annotator, err := ocr.NewVisionAnnotator(ctx)
	if err != nil {
		log.Fatalf("Failed to create Vision annotator: %v", err)
	}
	defer annotator.Close()

	pdfFile, err := os.Open("sample.pdf")
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer pdfFile.Close()

	text, err := annotator.ExtractText(ctx, pdfFile)
	if err != nil {
		log.Fatalf("Failed to process PDF: %v", err)
	}

	fmt.Printf("Extracted text:\n%s\n", text)
}
