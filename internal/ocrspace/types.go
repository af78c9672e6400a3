package ocrspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is the body returned by the parse/image endpoint. Exit codes and
// timings arrive as numbers or numeric strings, hence json.Number.
type Response struct {
	ParsedResults                []ParsedResult `json:"ParsedResults"`
	OCRExitCode                  json.Number    `json:"OCRExitCode,omitempty"`
	IsErroredOnProcessing        bool           `json:"IsErroredOnProcessing"`
	ErrorMessage                 Messages       `json:"ErrorMessage,omitempty"`
	ErrorDetails                 string         `json:"ErrorDetails,omitempty"`
	ProcessingTimeInMilliseconds json.Number    `json:"ProcessingTimeInMilliseconds,omitempty"`
}

// ParsedResult holds the recognition output for one page of the submitted file
type ParsedResult struct {
	TextOverlay       *TextOverlay `json:"TextOverlay"`
	FileParseExitCode json.Number  `json:"FileParseExitCode,omitempty"`
	ParsedText        string       `json:"ParsedText"`
	ErrorMessage      string       `json:"ErrorMessage,omitempty"`
	ErrorDetails      string       `json:"ErrorDetails,omitempty"`
}

// TextOverlay is only populated when the request asked for it (isOverlayRequired)
type TextOverlay struct {
	Lines      []Line `json:"Lines"`
	HasOverlay bool   `json:"HasOverlay"`
	Message    string `json:"Message,omitempty"`
}

// Line is a run of words the engine grouped together
type Line struct {
	Words     []Word  `json:"Words"`
	MaxHeight float64 `json:"MaxHeight"`
	MinTop    float64 `json:"MinTop"`
}

// Word is a single recognized token and its bounding box in image pixels
type Word struct {
	WordText string  `json:"WordText"`
	Left     float64 `json:"Left"`
	Top      float64 `json:"Top"`
	Height   float64 `json:"Height"`
	Width    float64 `json:"Width"`
}

// Messages decodes ErrorMessage, which the service sends as a string,
// an array of strings or null depending on the failure.
type Messages []string

// UnmarshalJSON accepts a string, an array of strings or null
func (m *Messages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Messages{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("error message is neither a string nor a list: %w", err)
	}
	*m = list
	return nil
}

// String joins all messages
func (m Messages) String() string {
	return strings.Join(m, "; ")
}

// ParseResponse decodes a raw response body
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return &resp, nil
}

// Failed reports whether the service flagged an internal processing failure
func (r *Response) Failed() bool {
	return r.IsErroredOnProcessing
}

// Reason returns the failure description reported by the service
func (r *Response) Reason() string {
	if len(r.ErrorMessage) > 0 {
		return r.ErrorMessage.String()
	}
	if r.ErrorDetails != "" {
		return r.ErrorDetails
	}
	for _, pr := range r.ParsedResults {
		if pr.ErrorMessage != "" {
			return pr.ErrorMessage
		}
	}
	return "unknown error"
}
