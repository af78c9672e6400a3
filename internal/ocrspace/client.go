// Package ocrspace is a client for the OCR.space parse/image API.
package ocrspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/platinummonkey/ocrsweep/internal/logger"
	"github.com/spf13/afero"
)

const (
	// DefaultEndpoint is the public OCR.space parse endpoint
	DefaultEndpoint = "https://api.ocr.space/parse/image"

	// DefaultTimeout bounds a single request, upload included
	DefaultTimeout = 30 * time.Second

	// DefaultLanguage is the OCR language code sent with each request
	DefaultLanguage = "eng"

	// DefaultEngine selects OCR engine 2
	DefaultEngine = 2
)

// ErrForbidden is matched by a StatusError carrying HTTP 403, which the
// service returns once the API key's quota is used up.
var ErrForbidden = errors.New("ocr.space request forbidden")

// StatusError is returned for any non-200 response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ocr.space API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrForbidden) match a 403
func (e *StatusError) Is(target error) bool {
	return target == ErrForbidden && e.StatusCode == http.StatusForbidden
}

// Client submits image files to OCR.space
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	overlay    bool
	engine     int
	httpClient *http.Client
	fs         afero.Fs
	logger     *logger.Logger
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithEndpoint sets the API endpoint
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithAPIKey sets the API key sent as the apikey form field
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithLanguage sets the OCR language code
func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		c.language = language
	}
}

// WithOverlay controls whether word coordinates are requested
func WithOverlay(overlay bool) ClientOption {
	return func(c *Client) {
		c.overlay = overlay
	}
}

// WithEngine selects the OCR engine
func WithEngine(engine int) ClientOption {
	return func(c *Client) {
		c.engine = engine
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithFs sets the filesystem images are read from
func WithFs(fs afero.Fs) ClientOption {
	return func(c *Client) {
		c.fs = fs
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

// NewClient creates a new OCR.space client
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		endpoint: DefaultEndpoint,
		language: DefaultLanguage,
		overlay:  true,
		engine:   DefaultEngine,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		fs:     afero.NewOsFs(),
		logger: logger.Get(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Submit uploads the file at path and returns the raw response body.
// Any error means the image was not processed; nothing is retried.
func (c *Client) Submit(ctx context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	body, contentType, err := c.buildForm(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields("file", path).WithError(err).Error("OCR request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WithFields("file", path).WithError(err).Error("Failed to read OCR response")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		c.logger.WithFields("status", resp.StatusCode, "message", string(respBody)).
			Error("OCR request forbidden, API quota is most likely exhausted")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		c.logger.WithFields("status", resp.StatusCode, "message", string(respBody)).
			Error("OCR request returned non-200 status")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.WithFields("file", path, "bytes", len(respBody), "duration", time.Since(start)).
		Debug("OCR request completed")

	return respBody, nil
}

// buildForm encodes the request fields and the image as multipart/form-data
func (c *Client) buildForm(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"isOverlayRequired", strconv.FormatBool(c.overlay)},
		{"apikey", c.apiKey},
		{"language", c.language},
		{"OCREngine", strconv.Itoa(c.engine)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f.key, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimetype.Detect(data).String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
