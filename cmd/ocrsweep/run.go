package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/ocrsweep/internal/config"
	"github.com/platinummonkey/ocrsweep/internal/logger"
	"github.com/platinummonkey/ocrsweep/internal/ocrspace"
	"github.com/platinummonkey/ocrsweep/internal/runner"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "OCR every unprocessed image of the dataset",
	Long: `Process every configured split of the dataset.

For each split this command:
1. Loads <split>_ocr_results.json from the output directory (if present)
2. Lists the images of every configured folder in sorted order
3. Skips images already present in the result file
4. Sends the remaining images to OCR.space
5. Records every word and its bounding box
6. Saves the result file

If a request fails (quota exhausted, network error) progress is saved and
the run stops; running the command again resumes where it stopped.

Examples:
  # Process the default dataset layout under ./data
  OCRSWEEP_API_KEY=... ocrsweep run

  # Only the validation split, two folders
  ocrsweep run --splits val --folders question_images,teaching_images

  # Count pending images without calling the API
  ocrsweep run --dry-run`,
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("image-extension", "", "image file suffix (default .png)")
	runCmd.Flags().String("language", "", "OCR.space language code (default eng)")
	runCmd.Flags().Int("engine", 0, "OCR.space engine (1-3, default 2)")
	runCmd.Flags().Duration("timeout", 0, "per-request timeout (default 30s)")
	runCmd.Flags().Duration("request-interval", 0, "minimum time between requests")
	runCmd.Flags().Bool("dedupe-words", false, "drop repeated word text within one image")
	runCmd.Flags().Bool("dry-run", false, "list pending images without calling the API")
	runCmd.Flags().String("log-format", "", "log format (console, json)")
	runCmd.Flags().String("log-file", "", "also write logs to this file")
}

func runOCR(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		OutputPath:   cfg.LogFile,
		EnableCaller: cfg.LogLevel == "debug",
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = log.Close() }()

	fs := afero.NewOsFs()

	var submitter runner.Submitter
	if !cfg.DryRun {
		submitter = ocrspace.NewClient(
			ocrspace.WithEndpoint(cfg.OCR.Endpoint),
			ocrspace.WithAPIKey(cfg.OCR.APIKey),
			ocrspace.WithLanguage(cfg.OCR.Language),
			ocrspace.WithOverlay(cfg.OCR.Overlay),
			ocrspace.WithEngine(cfg.OCR.Engine),
			ocrspace.WithTimeout(cfg.OCR.Timeout),
			ocrspace.WithFs(fs),
		)
	}

	r, err := runner.New(&runner.Config{
		Options: runner.Options{
			DataDir:         cfg.DataDir,
			OutputDir:       cfg.OutputDir,
			Splits:          cfg.Splits,
			Folders:         cfg.Folders,
			Extension:       cfg.ImageExtension,
			Dedupe:          cfg.DedupeWords,
			DryRun:          cfg.DryRun,
			RequestInterval: cfg.OCR.RequestInterval,
		},
		Submitter: submitter,
		Fs:        fs,
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// Ctrl-C stops the run the same way a refused request does: progress is saved first
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := r.Run(ctx)

	fmt.Println()
	fmt.Print(result.Summary())

	return exitError(result, runErr, log)
}

// exitError decides the command outcome. An aborted run fails with a resume
// hint; result files that could not be written are only reported.
func exitError(result *runner.Result, runErr error, log *logger.Logger) error {
	if runErr != nil {
		var abort *runner.AbortError
		if errors.As(runErr, &abort) {
			if errors.Is(runErr, ocrspace.ErrForbidden) {
				return fmt.Errorf("%w; progress was saved, check the API key quota and re-run later", runErr)
			}
			return fmt.Errorf("%w; progress was saved, re-run to resume", runErr)
		}
		return runErr
	}

	for _, split := range result.Splits {
		if split.SaveError != nil {
			log.WithSplit(split.Name).WithError(split.SaveError).
				Warn("Result file was not written, its images will be processed again on the next run")
		}
	}

	return nil
}
