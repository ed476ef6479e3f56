package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"doctext/internal/config"
	"doctext/internal/gcs"
	"doctext/internal/logger"
	"doctext/internal/ocr"
)

var extractCmd = &cobra.Command{
	Use:   "extract [object-name]",
	Short: "Extract text from a PDF/TIFF stored in Google Cloud Storage",
	Long: `Process a PDF or TIFF file stored in a GCS bucket using Cloud Vision's
asynchronous batch OCR and print the complete recognized text in page order.

The command submits one asynchronous annotation request, directs the paginated
JSON output to a unique "ocr/<job-id>/" prefix in the output bucket, waits for
the remote operation to finish, and reassembles the output files sorted by
their embedded page range.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string

Bucket names may come from flags or from GCS_SOURCE_BUCKET and
GCS_OUTPUT_BUCKET.`,
	Example: `  # Extract text from gs://my-docs/contract.pdf
  doctext extract contract.pdf --bucket my-docs --output-bucket my-ocr-output

  # Buckets from the environment, result to a file
  doctext extract scans/contract.pdf -o contract.txt

  # Slow documents: raise the wait timeout (seconds)
  doctext extract big-archive.pdf --timeout 900`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("bucket", "", "Source bucket holding the PDF/TIFF (default: GCS_SOURCE_BUCKET)")
	extractCmd.Flags().String("output-bucket", "", "Bucket for OCR output blobs (default: GCS_OUTPUT_BUCKET)")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Int("timeout", 0, "Wait timeout in seconds (default: OCR_TIMEOUT_SECONDS or 420)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	sourceBucket, _ := cmd.Flags().GetString("bucket")
	outputBucket, _ := cmd.Flags().GetString("output-bucket")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	objectName := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if sourceBucket == "" {
		sourceBucket = cfg.GCSSourceBucket
	}
	if outputBucket == "" {
		outputBucket = cfg.GCSOutputBucket
	}
	if timeoutSecs <= 0 {
		timeoutSecs = cfg.OCRTimeoutSeconds
	}

	if sourceBucket == "" {
		return fmt.Errorf("source bucket not set: use --bucket or GCS_SOURCE_BUCKET")
	}
	if outputBucket == "" {
		return fmt.Errorf("output bucket not set: use --output-bucket or GCS_OUTPUT_BUCKET")
	}

	log.Info().
		Str("object", objectName).
		Str("bucket", sourceBucket).
		Str("output_bucket", outputBucket).
		Int("timeout", timeoutSecs).
		Msg("Starting asynchronous OCR extraction")

	ctx, cancel := createSignalContext(log)
	defer cancel()

	store, err := gcs.NewClient(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create storage client")
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close storage client")
		}
	}()

	annotator, err := createAnnotator(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := annotator.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close Vision client")
		}
	}()

	service := ocr.NewService(store, annotator)

	startTime := time.Now()
	text, err := service.ExtractAsync(ctx, sourceBucket, objectName, outputBucket, time.Duration(timeoutSecs)*time.Second)
	if err != nil {
		return handleExtractError(err, log)
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Int("text_length", len(text)).
		Msg("OCR extraction completed successfully")

	return writeText(text, outputPath, log)
}

// createSignalContext creates a context canceled on SIGINT/SIGTERM. The OCR
// wait timeout is applied separately inside the service.
func createSignalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling OCR extraction")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// createAnnotator creates the Vision annotator, checking credentials first.
func createAnnotator(ctx context.Context, log zerolog.Logger) (*ocr.VisionAnnotator, error) {
	hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""

	if !hasCredentials {
		log.Error().Msg("Google Cloud credentials not configured")
		return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
			"3. Use Application Default Credentials (if gcloud is configured):\n" +
			"   gcloud auth application-default login\n\n" +
			"4. Check that your .env file contains the credentials variables")
	}

	annotator, err := ocr.NewVisionAnnotator(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to create Vision annotator")
		return nil, fmt.Errorf("failed to create Vision annotator: %w", err)
	}

	log.Debug().Msg("Vision annotator created successfully")
	return annotator, nil
}

// handleExtractError provides user-friendly error messages for pipeline failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR operation timed out before completion. Try increasing --timeout; the remote operation may still finish and leave output in the bucket")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR extraction was canceled")
	case errors.Is(err, ocr.ErrInvalidDestinationURI):
		return fmt.Errorf("invalid output destination: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON\n"+
			"3. Ensure the service account has the 'Cloud Vision API User' and\n"+
			"   'Storage Object Admin' roles on the buckets involved\n\n"+
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. The service account needs read access to the source bucket and read/write/delete access to the output bucket")
	case strings.Contains(errStr, "bucket doesn't exist") ||
		strings.Contains(errStr, "notFound"):
		return fmt.Errorf("bucket or object not found. Check the bucket names and the object path: %w", err)
	case strings.Contains(errStr, "QUOTA_EXCEEDED") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("OCR extraction failed: %w", err)
	}
}

// writeText writes the extracted text to a file or stdout
func writeText(text, outputPath string, log zerolog.Logger) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(text)).
			Msg("Extracted text written to file")
		return nil
	}

	if _, err := os.Stdout.WriteString(text); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()

	return nil
}
