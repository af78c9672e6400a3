package runner

import (
	"fmt"
	"strings"
	"time"
)

// Result contains the outcome of one run across all splits
type Result struct {
	RunID    string
	Splits   []*SplitResult
	Aborted  bool
	DryRun   bool
	Duration time.Duration
}

// SplitResult contains the counters of one dataset split
type SplitResult struct {
	Name       string
	OutputPath string

	// Loaded is the number of image keys already present at split start
	Loaded int

	// Processed counts images whose response was recorded, including empty ones
	Processed int

	// Empty counts recorded images where no words were found
	Empty int

	// Words is the number of word records added in this run
	Words int

	// Skipped counts images already present in the store
	Skipped int

	// Malformed counts responses that were not valid JSON
	Malformed int

	// RemoteFailures counts responses flagged IsErroredOnProcessing
	RemoteFailures int

	// Pending counts images a dry run would submit
	Pending int

	// MissingFolders lists image folders that do not exist in this split
	MissingFolders []string

	// SaveError is set when the result document could not be written
	SaveError error
}

// NewResult creates an empty result for a run
func NewResult(runID string, dryRun bool) *Result {
	return &Result{
		RunID:  runID,
		Splits: make([]*SplitResult, 0),
		DryRun: dryRun,
	}
}

// AddSplit starts tracking a split
func (r *Result) AddSplit(name, outputPath string) *SplitResult {
	split := &SplitResult{Name: name, OutputPath: outputPath}
	r.Splits = append(r.Splits, split)
	return split
}

// Totals sums the counters of every split
func (r *Result) Totals() SplitResult {
	var total SplitResult
	for _, s := range r.Splits {
		total.Loaded += s.Loaded
		total.Processed += s.Processed
		total.Empty += s.Empty
		total.Words += s.Words
		total.Skipped += s.Skipped
		total.Malformed += s.Malformed
		total.RemoteFailures += s.RemoteFailures
		total.Pending += s.Pending
	}
	return total
}

// HasSaveErrors returns true if any split failed to persist
func (r *Result) HasSaveErrors() bool {
	for _, s := range r.Splits {
		if s.SaveError != nil {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the run
func (r *Result) Summary() string {
	var sb strings.Builder

	status := "completed"
	switch {
	case r.Aborted:
		status = "aborted"
	case r.DryRun:
		status = "dry run"
	}

	fmt.Fprintf(&sb, "OCR Run Summary (%s, run %s):\n", status, r.RunID)
	for _, s := range r.Splits {
		fmt.Fprintf(&sb, "  %s:\n", s.Name)
		fmt.Fprintf(&sb, "    Already recorded: %d\n", s.Loaded)
		if r.DryRun {
			fmt.Fprintf(&sb, "    Pending: %d\n", s.Pending)
		} else {
			fmt.Fprintf(&sb, "    Processed: %d (%d without text, %d words)\n", s.Processed, s.Empty, s.Words)
		}
		fmt.Fprintf(&sb, "    Skipped: %d\n", s.Skipped)
		if s.Malformed > 0 || s.RemoteFailures > 0 {
			fmt.Fprintf(&sb, "    Failed: %d malformed, %d rejected by service\n", s.Malformed, s.RemoteFailures)
		}
		if len(s.MissingFolders) > 0 {
			fmt.Fprintf(&sb, "    Missing folders: %s\n", strings.Join(s.MissingFolders, ", "))
		}
		if s.SaveError != nil {
			fmt.Fprintf(&sb, "    Save error: %v\n", s.SaveError)
		} else if s.OutputPath != "" && !r.DryRun {
			fmt.Fprintf(&sb, "    Output: %s\n", s.OutputPath)
		}
	}
	fmt.Fprintf(&sb, "  Duration: %v\n", r.Duration)

	return sb.String()
}

// String returns a string representation of the run result
func (r *Result) String() string {
	return r.Summary()
}
