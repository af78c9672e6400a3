package results

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/ocrsweep/internal/ocrspace"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func overlayResponse(lines ...[]ocrspace.Word) *ocrspace.Response {
	overlay := &ocrspace.TextOverlay{HasOverlay: true}
	for _, words := range lines {
		overlay.Lines = append(overlay.Lines, ocrspace.Line{Words: words})
	}
	return &ocrspace.Response{
		ParsedResults: []ocrspace.ParsedResult{{TextOverlay: overlay}},
	}
}

func TestNewWordRecord_Center(t *testing.T) {
	rec := NewWordRecord("HELLO", 10, 20, 30, 40)

	require.Equal(t, Point{X: 25, Y: 40}, rec.Coordinate.Center)
	require.Equal(t, 10.0, rec.Coordinate.Left)
	require.Equal(t, 20.0, rec.Coordinate.Top)
	require.Equal(t, 30.0, rec.Coordinate.Width)
	require.Equal(t, 40.0, rec.Coordinate.Height)
}

func TestWordRecord_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewWordRecord("HELLO", 10, 20, 30, 40))
	require.NoError(t, err)
	require.Equal(t,
		`{"WordText":"HELLO","Coordinate":{"Center":[25,40],"Left":10,"Top":20,"Height":40,"Width":30}}`,
		string(data))

	var back WordRecord
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, NewWordRecord("HELLO", 10, 20, 30, 40), back)
}

func TestPoint_UnmarshalRejectsWrongArity(t *testing.T) {
	var p Point
	require.Error(t, json.Unmarshal([]byte(`[1, 2, 3]`), &p))
	require.Error(t, json.Unmarshal([]byte(`{"X": 1}`), &p))
}

func TestExtract_TwoLines(t *testing.T) {
	resp := overlayResponse(
		[]ocrspace.Word{{WordText: "Photo", Left: 4, Top: 6, Width: 10, Height: 8}},
		[]ocrspace.Word{{WordText: "synthesis", Left: 100, Top: 50, Width: 61, Height: 13}},
	)

	words, err := Extract(resp, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, words, 2)

	require.Equal(t, "Photo", words[0].WordText)
	require.Equal(t, Point{X: 9, Y: 10}, words[0].Coordinate.Center)
	require.Equal(t, "synthesis", words[1].WordText)
	require.Equal(t, Point{X: 130.5, Y: 56.5}, words[1].Coordinate.Center)
}

func TestExtract_SkipsEmptyWords(t *testing.T) {
	resp := overlayResponse(
		[]ocrspace.Word{{WordText: ""}, {WordText: "A", Left: 1, Top: 1, Width: 2, Height: 2}},
		nil,
	)

	words, err := Extract(resp, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, words, 1)
	require.Equal(t, "A", words[0].WordText)
}

func TestExtract_Duplicates(t *testing.T) {
	resp := overlayResponse(
		[]ocrspace.Word{{WordText: "the", Left: 1}, {WordText: "cell", Left: 5}},
		[]ocrspace.Word{{WordText: "the", Left: 9}},
	)

	words, err := Extract(resp, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, words, 3)

	deduped, err := Extract(resp, ExtractOptions{Dedupe: true})
	require.NoError(t, err)
	require.Len(t, deduped, 2)
	require.Equal(t, 1.0, deduped[0].Coordinate.Left)
}

func TestExtract_Empty(t *testing.T) {
	tests := []struct {
		name    string
		resp    *ocrspace.Response
		wantErr error
	}{
		{"nil response", nil, ErrNoResults},
		{"no parsed results", &ocrspace.Response{}, ErrNoResults},
		{"no overlay", &ocrspace.Response{ParsedResults: []ocrspace.ParsedResult{{ParsedText: "x"}}}, ErrNoOverlay},
		{"no lines", overlayResponse(), ErrNoOverlay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := Extract(tt.resp, ExtractOptions{})
			require.True(t, errors.Is(err, tt.wantErr))
			require.NotNil(t, words)
			require.Empty(t, words)
		})
	}
}

func TestStore_RecordEmptyMarksPresent(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "out/train_ocr_results.json")

	n, err := store.Record("A/blank.png", overlayResponse(), ExtractOptions{})
	require.ErrorIs(t, err, ErrNoOverlay)
	require.Zero(t, n)
	require.True(t, store.Has("A/blank.png"))

	words, ok := store.Get("A/blank.png")
	require.True(t, ok)
	require.NotNil(t, words)
	require.Empty(t, words)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "out/train_ocr_results.json")
	require.NoError(t, store.Load())
	require.Zero(t, store.Len())
}

func TestStore_LoadCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/val_ocr_results.json", []byte("{not json"), 0644))

	store := NewStore(fs, "out/val_ocr_results.json")
	store.Set("stale", nil)

	err := store.Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.Zero(t, store.Len())
}

func TestStore_SaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out/test_ocr_results.json"

	store := NewStore(fs, path)
	store.Set("B/img2.png", []WordRecord{NewWordRecord("光合作用", 0, 0, 4, 2)})
	store.Set("A/img1.png", []WordRecord{NewWordRecord("<H&O>", 10, 20, 30, 40)})
	store.Set("A/empty.png", nil)
	require.NoError(t, store.Save())

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	text := string(data)

	require.Contains(t, text, "光合作用")
	require.Contains(t, text, "<H&O>")
	require.Contains(t, text, `"A/empty.png": []`)
	require.Contains(t, text, "\n    \"A/empty.png\"")
	require.Less(t, strings.Index(text, "A/empty.png"), strings.Index(text, "B/img2.png"))

	exists, err := afero.Exists(fs, path+".tmp")
	require.NoError(t, err)
	require.False(t, exists)

	loaded := NewStore(fs, path)
	require.NoError(t, loaded.Load())
	require.Equal(t, []string{"A/empty.png", "A/img1.png", "B/img2.png"}, loaded.Keys())

	words, ok := loaded.Get("A/img1.png")
	require.True(t, ok)
	require.Equal(t, []WordRecord{NewWordRecord("<H&O>", 10, 20, 30, 40)}, words)
}

func TestStore_LoadNullEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "r.json", []byte(`{"A/x.png": null}`), 0644))

	store := NewStore(fs, "r.json")
	require.NoError(t, store.Load())

	words, ok := store.Get("A/x.png")
	require.True(t, ok)
	require.NotNil(t, words)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "train_ocr_results.json", FileName("train"))
}
