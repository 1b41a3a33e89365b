// Package facepp is a client for the Face++ compare API.
package facepp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the compare endpoint of the US region.
	DefaultURL     = "https://api-us.faceplusplus.com/facepp/v3/compare"
	DefaultTimeout = 8 * time.Second
)

// ErrNoConfidence is returned when the service answers without a confidence,
// typically because it found no face in one of the images.
var ErrNoConfidence = errors.New("response has no confidence")

// Config holds Face++ credentials and limits.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// QPS limits outgoing requests per second. Zero disables limiting.
	QPS   float64
	Burst int
}

// Client compares two face images through Face++.
type Client struct {
	url       string
	apiKey    string
	apiSecret string
	client    *http.Client
	limiter   *rate.Limiter
}

type compareResponse struct {
	Confidence   *float64 `json:"confidence"`
	ErrorMessage string   `json:"error_message"`
	RequestID    string   `json:"request_id"`
}

// NewClient creates a new Face++ client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("Face++ API key and secret are required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.QPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	return c, nil
}

// Compare returns the confidence (0-100) that both images show the same person.
func (c *Client) Compare(ctx context.Context, live, reference []byte) (float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit: %w", err)
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return 0, fmt.Errorf("failed to write api_key: %w", err)
	}
	if err := writer.WriteField("api_secret", c.apiSecret); err != nil {
		return 0, fmt.Errorf("failed to write api_secret: %w", err)
	}
	if err := writeFile(writer, "image_file1", "live.jpg", live); err != nil {
		return 0, err
	}
	if err := writeFile(writer, "image_file2", "reference.jpg", reference); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var cr compareResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API error (status %d): %s", resp.StatusCode, cr.ErrorMessage)
	}
	if cr.Confidence == nil {
		return 0, ErrNoConfidence
	}
	return *cr.Confidence, nil
}

func writeFile(w *multipart.Writer, field, name string, data []byte) error {
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", field, err)
	}
	return nil
}
