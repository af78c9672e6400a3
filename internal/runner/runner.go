// Package runner drives an OCR run: it walks the dataset splits and image
// folders, submits every image not yet recorded and persists the results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/ocrsweep/internal/images"
	"github.com/platinummonkey/ocrsweep/internal/logger"
	"github.com/platinummonkey/ocrsweep/internal/ocrspace"
	"github.com/platinummonkey/ocrsweep/internal/results"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// Submitter sends one image to the OCR service and returns the raw body.
// Any error aborts the run.
type Submitter interface {
	Submit(ctx context.Context, path string) ([]byte, error)
}

// limiter paces submissions; *rate.Limiter satisfies it
type limiter interface {
	Wait(ctx context.Context) error
}

// Options describes the dataset layout and run behavior
type Options struct {
	// DataDir holds one directory per split
	DataDir string

	// OutputDir receives <split>_ocr_results.json
	OutputDir string

	// Splits are processed in order
	Splits []string

	// Folders are scanned in order inside each split
	Folders []string

	// Extension selects image files by suffix
	Extension string

	// Dedupe drops repeated word text within one image
	Dedupe bool

	// DryRun counts pending images without submitting or writing anything
	DryRun bool

	// RequestInterval is the minimum time between two submissions
	RequestInterval time.Duration
}

// AbortError reports that the run stopped early. Progress of the split in
// flight was saved before it was returned.
type AbortError struct {
	Split    string
	ImageKey string
	Err      error
}

func (e *AbortError) Error() string {
	if e.ImageKey == "" {
		return fmt.Sprintf("run aborted in split %s: %v", e.Split, e.Err)
	}
	return fmt.Sprintf("run aborted in split %s at %s: %v", e.Split, e.ImageKey, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Runner coordinates the run
type Runner struct {
	opts      Options
	fs        afero.Fs
	submitter Submitter
	logger    *logger.Logger
	limiter   limiter
	newRunID  func() string
}

// Config holds the dependencies of a Runner
type Config struct {
	Options   Options
	Submitter Submitter
	Fs        afero.Fs
	Logger    *logger.Logger
}

// New creates a new runner
func New(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Submitter == nil && !cfg.Options.DryRun {
		return nil, fmt.Errorf("submitter is required")
	}
	if cfg.Options.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if cfg.Options.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(cfg.Options.Splits) == 0 {
		return nil, fmt.Errorf("at least one split is required")
	}
	if len(cfg.Options.Folders) == 0 {
		return nil, fmt.Errorf("at least one image folder is required")
	}
	if cfg.Options.Extension == "" {
		return nil, fmt.Errorf("image extension is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	r := &Runner{
		opts:      cfg.Options,
		fs:        fs,
		submitter: cfg.Submitter,
		logger:    log,
		newRunID:  uuid.NewString,
	}
	if cfg.Options.RequestInterval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(cfg.Options.RequestInterval), 1)
	}

	return r, nil
}

// Run processes every split in order. It returns an *AbortError when a
// submission fails or ctx is cancelled; the returned Result is always
// non-nil and reflects the work done up to that point.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := NewResult(r.newRunID(), r.opts.DryRun)
	log := r.logger.WithRunID(result.RunID)

	log.WithFields("data_dir", r.opts.DataDir, "output_dir", r.opts.OutputDir, "dry_run", r.opts.DryRun).
		Info("Starting OCR run")

	for _, split := range r.opts.Splits {
		if err := r.runSplit(ctx, log.WithSplit(split), result, split); err != nil {
			result.Aborted = true
			result.Duration = time.Since(start)
			return result, err
		}
	}

	result.Duration = time.Since(start)
	totals := result.Totals()
	log.WithFields(
		"processed", totals.Processed,
		"skipped", totals.Skipped,
		"words", totals.Words,
		"duration", result.Duration,
	).Info("OCR run completed")

	return result, nil
}

// runSplit loads the split's store, scans its folders and saves the store.
// A non-nil error aborts the whole run.
func (r *Runner) runSplit(ctx context.Context, log *logger.Logger, result *Result, split string) error {
	outputPath := filepath.Join(r.opts.OutputDir, results.FileName(split))
	stats := result.AddSplit(split, outputPath)
	store := results.NewStore(r.fs, outputPath)

	log.WithFields("output", outputPath).Info("Processing split")

	if err := store.Load(); err != nil {
		if !errors.Is(err, results.ErrCorrupt) {
			return &AbortError{Split: split, Err: err}
		}
		log.WithError(err).Warn("Existing result file is corrupt, starting from an empty store")
	}
	stats.Loaded = store.Len()
	if stats.Loaded > 0 {
		log.WithFields("records", stats.Loaded).Info("Loaded existing records")
	}

	for _, folder := range r.opts.Folders {
		if err := r.scanFolder(ctx, log, stats, store, split, folder); err != nil {
			if !r.opts.DryRun {
				r.save(log, stats, store)
			}
			return err
		}
	}

	if r.opts.DryRun {
		log.WithFields("pending", stats.Pending).Info("Dry run, nothing written")
		return nil
	}

	if r.save(log, stats, store) {
		log.WithFields("records", store.Len(), "output", outputPath).Info("Split results saved")
	}
	return nil
}

// scanFolder submits every unrecorded image of one folder
func (r *Runner) scanFolder(ctx context.Context, log *logger.Logger, stats *SplitResult, store *results.Store, split, folder string) error {
	dir := filepath.Join(r.opts.DataDir, split, folder)

	exists, err := afero.DirExists(r.fs, dir)
	if err != nil || !exists {
		log.WithFields("dir", dir).Info("Directory does not exist, skipping")
		stats.MissingFolders = append(stats.MissingFolders, folder)
		return nil
	}

	names, err := images.List(r.fs, dir, r.opts.Extension)
	if err != nil {
		log.WithFields("dir", dir).WithError(err).Warn("Failed to list images, skipping folder")
		return nil
	}
	if len(names) == 0 {
		log.WithFields("dir", dir, "extension", r.opts.Extension).Info("No images found, skipping")
		return nil
	}

	log.WithFields("dir", dir, "images", len(names)).Info("Scanning folder")

	for i, name := range names {
		key := images.Key(folder, name)
		imgLog := log.WithImageKey(key).WithFields("position", fmt.Sprintf("%d/%d", i+1, len(names)))

		if store.Has(key) {
			imgLog.Debug("Already processed, skipping")
			stats.Skipped++
			continue
		}

		if r.opts.DryRun {
			imgLog.Info("Pending")
			stats.Pending++
			continue
		}

		if err := r.wait(ctx); err != nil {
			imgLog.WithError(err).Warn("Run cancelled")
			return &AbortError{Split: split, ImageKey: key, Err: err}
		}

		imgLog.Info("Processing image")
		body, err := r.submitter.Submit(ctx, filepath.Join(dir, name))
		if err != nil {
			imgLog.WithError(err).Error("OCR request failed, stopping run; check the API key quota and re-run later")
			return &AbortError{Split: split, ImageKey: key, Err: err}
		}

		r.record(imgLog, stats, store, key, body)
	}

	return nil
}

// record interprets one response body; every outcome here is local to the image
func (r *Runner) record(log *logger.Logger, stats *SplitResult, store *results.Store, key string, body []byte) {
	resp, err := ocrspace.ParseResponse(body)
	if err != nil {
		log.WithFields("body", truncate(string(body), 100)).WithError(err).Error("Could not parse OCR response, skipping image")
		stats.Malformed++
		return
	}

	if resp.Failed() {
		log.WithFields("reason", resp.Reason()).Error("OCR processing failed, skipping image")
		stats.RemoteFailures++
		return
	}

	n, err := store.Record(key, resp, results.ExtractOptions{Dedupe: r.opts.Dedupe})
	if err != nil {
		log.WithError(err).Warn("No text found, recording empty result")
		stats.Empty++
	}
	stats.Processed++
	stats.Words += n
}

// save persists the store; failures are logged and recorded, never fatal
func (r *Runner) save(log *logger.Logger, stats *SplitResult, store *results.Store) bool {
	if err := store.Save(); err != nil {
		log.WithFields("output", store.Path()).WithError(err).Error("Failed to write result file")
		stats.SaveError = err
		return false
	}
	log.WithFields("records", store.Len()).Debug("Progress saved")
	return true
}

func (r *Runner) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
