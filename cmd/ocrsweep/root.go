package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ocrsweep",
	Short: "Extract word boxes from image datasets with OCR.space",
	Long: `ocrsweep walks an image dataset split by split, sends every image
to the OCR.space API and stores the recognized words with their bounding
boxes in one JSON document per split.

Features:
  - Resumable: images already present in the result file are never resent
  - Progress is saved when the API refuses a request (e.g. quota exhausted)
  - Configurable splits, image folders and OCR.space options
  - Dry run mode to count pending images`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ocrsweep.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("data-dir", "", "dataset root holding one directory per split")
	rootCmd.PersistentFlags().String("output-dir", "", "output directory (default is <data-dir>/processed_data/ocr_results)")
	rootCmd.PersistentFlags().StringSlice("splits", nil, "splits to process in order (comma-separated)")
	rootCmd.PersistentFlags().StringSlice("folders", nil, "image folders scanned in each split (comma-separated)")
}
