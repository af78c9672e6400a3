package results

import (
	"errors"

	"github.com/platinummonkey/ocrsweep/internal/ocrspace"
)

var (
	// ErrNoResults means the response carried no parsed results
	ErrNoResults = errors.New("OCR response has no parsed results")

	// ErrNoOverlay means the first parsed result has no text lines
	ErrNoOverlay = errors.New("OCR response has no text overlay lines")
)

// ExtractOptions tunes Extract
type ExtractOptions struct {
	// Dedupe drops a word whose exact text was already recorded for the image
	Dedupe bool
}

// Extract converts the word overlay of the first parsed result into records,
// in line then word order. Words without text are skipped. When there is
// nothing to extract it returns an empty, non-nil slice together with
// ErrNoResults or ErrNoOverlay.
func Extract(resp *ocrspace.Response, opts ExtractOptions) ([]WordRecord, error) {
	words := []WordRecord{}

	if resp == nil || len(resp.ParsedResults) == 0 {
		return words, ErrNoResults
	}

	overlay := resp.ParsedResults[0].TextOverlay
	if overlay == nil || len(overlay.Lines) == 0 {
		return words, ErrNoOverlay
	}

	for _, line := range overlay.Lines {
		for _, w := range line.Words {
			if w.WordText == "" {
				continue
			}
			if opts.Dedupe && containsText(words, w.WordText) {
				continue
			}
			words = append(words, NewWordRecord(w.WordText, w.Left, w.Top, w.Width, w.Height))
		}
	}

	return words, nil
}

// Record extracts the words of resp and stores them under key. The key is
// stored even when extraction finds nothing, so the image is not resubmitted.
// The returned error is an extraction warning, never a storage failure.
func (s *Store) Record(key string, resp *ocrspace.Response, opts ExtractOptions) (int, error) {
	words, err := Extract(resp, opts)
	s.Set(key, words)
	return len(words), err
}

func containsText(words []WordRecord, text string) bool {
	for _, w := range words {
		if w.WordText == text {
			return true
		}
	}
	return false
}
