// client.go implements the HTTP client posting camera frames to the
// recognition server and decoding its JSON verdicts.
package platerec

import (
	"bytes"
	"context"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
)

// Package-level logger specific to the recognition client
var (
	serviceLogger *slog.Logger
	closeLogger   func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "platerec.log")

	serviceLogger, closeLogger, err = logging.NewFileLogger(logFilePath, "platerec", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize platerec file logger at %s: %v. Falling back to discard.", logFilePath, err)
		serviceLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		closeLogger = func() error { return nil }
	}
}

// Client talks to the plate recognition server. Safe for use from a single
// scan goroutine per entity; it keeps no mutable state between calls.
type Client struct {
	endpoint      string
	statisticsURL string
	apiToken      string
	HTTPClient    *http.Client
}

// Interface defines what the processor needs from a recognition client.
type Interface interface {
	Recognize(ctx context.Context, image []byte) (*ScanResult, error)
	Statistics(ctx context.Context) (*Statistics, error)
	Close()
}

// New creates a recognition client from the loaded settings. The HTTP client
// timeout bounds the whole request, a hung server fails the scan as a
// transport error instead of wedging the entity.
func New(settings *conf.Settings) *Client {
	return &Client{
		endpoint:      settings.Recognizer.URL,
		statisticsURL: settings.Recognizer.StatisticsURL,
		apiToken:      settings.Recognizer.APIToken,
		HTTPClient:    &http.Client{Timeout: settings.RecognizerTimeout()},
	}
}

// handleNetworkError classifies a failed request into the transport error
// taxonomy: timeout, cancellation or plain network failure.
func (c *Client) handleNetworkError(err error, endpoint string) error {
	timeout := c.HTTPClient.Timeout

	if errors.Is(err, context.Canceled) {
		serviceLogger.Warn("Request cancelled", "url", endpoint)
		return errors.New(err).
			Component("platerec").
			Category(errors.CategoryCancellation).
			NetworkContext(endpoint, timeout).
			Build()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		serviceLogger.Warn("Request timed out", "url", endpoint, "timeout", timeout)
		return errors.Newf("request timed out: %w", err).
			Component("platerec").
			Category(errors.CategoryNetwork).
			Context("timed_out", true).
			NetworkContext(endpoint, timeout).
			Build()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) {
			serviceLogger.Error("DNS resolution failed", "url", endpoint, "error", err)
			return errors.Newf("DNS resolution failed: %w", err).
				Component("platerec").
				Category(errors.CategoryNetwork).
				NetworkContext(endpoint, timeout).
				Build()
		}
	}

	serviceLogger.Error("Network error occurred", "url", endpoint, "error", err)
	return errors.Newf("network error: %w", err).
		Component("platerec").
		Category(errors.CategoryNetwork).
		NetworkContext(endpoint, timeout).
		Build()
}

// Recognize posts the image to the recognition server and returns the scan
// result. One synchronous request, no retries; retry policy belongs to
// whatever triggered the scan.
func (c *Client) Recognize(ctx context.Context, image []byte) (*ScanResult, error) {
	if len(image) == 0 {
		return nil, errors.Newf("image is empty").
			Component("platerec").
			Category(errors.CategoryValidation).
			Build()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("upload", "image.jpg")
	if err != nil {
		return nil, errors.Newf("failed to build multipart body: %w", err).
			Component("platerec").
			Category(errors.CategoryValidation).
			Build()
	}
	if _, err := part.Write(image); err != nil {
		return nil, errors.Newf("failed to write image into multipart body: %w", err).
			Component("platerec").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Newf("failed to finalize multipart body: %w", err).
			Component("platerec").
			Category(errors.CategoryValidation).
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, errors.Newf("failed to create POST request: %w", err).
			Component("platerec").
			Category(errors.CategoryValidation).
			NetworkContext(c.endpoint, c.HTTPClient.Timeout).
			Build()
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "alprd")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	serviceLogger.Info("Posting image to recognition server", "url", c.endpoint, "image_bytes", len(image))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.handleNetworkError(err, c.endpoint)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read response body: %w", err).
			Component("platerec").
			Category(errors.CategoryNetwork).
			NetworkContext(c.endpoint, c.HTTPClient.Timeout).
			Build()
	}
	serviceLogger.Debug("Received recognition response", "status_code", resp.StatusCode, "body_bytes", len(responseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serviceLogger.Error("Recognition server returned error status",
			"url", c.endpoint, "status_code", resp.StatusCode, "body", string(responseBody))
		return nil, errors.Newf("recognition server returned status %d: %s", resp.StatusCode, string(responseBody)).
			Component("platerec").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Context("response_body", string(responseBody)).
			NetworkContext(c.endpoint, c.HTTPClient.Timeout).
			Build()
	}

	detections, err := parseDetections(responseBody)
	if err != nil {
		serviceLogger.Error("Failed to parse recognition response",
			"url", c.endpoint, "status_code", resp.StatusCode, "body", string(responseBody), "error", err)
		return nil, errors.Newf("failed to parse recognition response: %w", err).
			Component("platerec").
			Category(errors.CategoryResponseParsing).
			Context("response_body", string(responseBody)).
			Build()
	}

	serviceLogger.Info("Recognition completed", "detections", len(detections))
	return &ScanResult{
		Detections: detections,
		Raw:        responseBody,
		Image:      image,
		Timestamp:  time.Now(),
	}, nil
}

// Statistics fetches the server usage report. Best effort, callers treat
// failures as non-fatal.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	if c.statisticsURL == "" {
		return nil, errors.Newf("statistics endpoint not configured").
			Component("platerec").
			Category(errors.CategoryConfiguration).
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statisticsURL, http.NoBody)
	if err != nil {
		return nil, errors.Newf("failed to create statistics request: %w", err).
			Component("platerec").
			Category(errors.CategoryValidation).
			Build()
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.handleNetworkError(err, c.statisticsURL)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read statistics body: %w", err).
			Component("platerec").
			Category(errors.CategoryNetwork).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("statistics endpoint returned status %d", resp.StatusCode).
			Component("platerec").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Build()
	}

	stats, err := parseStatistics(responseBody)
	if err != nil {
		return nil, errors.New(err).
			Component("platerec").
			Category(errors.CategoryResponseParsing).
			Build()
	}
	serviceLogger.Debug("Fetched recognizer statistics",
		"total_calls", stats.TotalCalls, "usage_calls", stats.UsageCalls, "calls_remaining", stats.CallsRemaining)
	return stats, nil
}

// Close releases client resources and the service log file.
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("failed to close platerec log file: %v", err)
		}
		closeLogger = nil
	}
}

var _ Interface = (*Client)(nil)

// Error classification helpers used by the processor to decide scan outcome.

// IsTransportError reports a network-level failure (unreachable, timeout).
func IsTransportError(err error) bool {
	return errors.IsCategory(err, errors.CategoryNetwork) ||
		errors.IsCategory(err, errors.CategoryCancellation)
}

// IsServerError reports a non-2xx response from the recognition server.
func IsServerError(err error) bool {
	return errors.IsCategory(err, errors.CategoryHTTP)
}

// IsParseError reports a malformed response body.
func IsParseError(err error) bool {
	return errors.IsCategory(err, errors.CategoryResponseParsing)
}
