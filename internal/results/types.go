// Package results holds the per-split OCR result documents: word records,
// the on-disk store, and the extractor that turns OCR responses into records.
package results

import (
	"encoding/json"
	"fmt"
)

// Point is a position in image pixels. It encodes as a JSON array [x, y].
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as [x, y]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes [x, y]
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Coordinate is the bounding box of a word plus its center
type Coordinate struct {
	Center Point   `json:"Center"`
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
	Height float64 `json:"Height"`
	Width  float64 `json:"Width"`
}

// WordRecord is one recognized word of an image
type WordRecord struct {
	WordText   string     `json:"WordText"`
	Coordinate Coordinate `json:"Coordinate"`
}

// NewWordRecord builds a record and derives the center of its box
func NewWordRecord(text string, left, top, width, height float64) WordRecord {
	return WordRecord{
		WordText: text,
		Coordinate: Coordinate{
			Center: Point{X: left + width/2, Y: top + height/2},
			Left:   left,
			Top:    top,
			Height: height,
			Width:  width,
		},
	}
}
