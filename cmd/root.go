package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"doctext/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "doctext",
	Short: "doctext - extract text from PDF/TIFF documents with Google Cloud OCR",
	Long: `doctext is a command-line tool for extracting text from PDF and TIFF
documents using Google Cloud OCR services.

Documents stored in Google Cloud Storage are processed asynchronously with
Cloud Vision's batch annotation API; the paginated JSON output is reassembled
into a single text string in page order. Small local files can be processed
directly without a storage round-trip.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("doctext executed")

		fmt.Println("Welcome to doctext!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
