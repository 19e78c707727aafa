package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"sync"
	"time"
)

// Config contains transcription client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// RetryHook is notified before each retry attempt.
type RetryHook func(attempt int, err error)

// HTTPClient posts recordings as multipart form data to a Whisper-style
// transcription server and expects a verbose_json response.
type HTTPClient struct {
	config     Config
	model      string
	httpClient *http.Client
	semaphore  chan struct{} // Rate limiting semaphore
	onRetry    RetryHook

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// statusError is a non-2xx answer from the transcription server.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.code, e.body)
}

// NewHTTPClient creates a client for model.
func NewHTTPClient(config Config, model string, onRetry RetryHook) (*HTTPClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPClient{
		config:     config,
		model:      model,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
		onRetry:    onRetry,
	}, nil
}

// Name identifies the backend in logs.
func (c *HTTPClient) Name() string {
	return "http:" + c.model
}

// Transcribe sends audio for transcription, retrying transient failures
// with exponential backoff.
func (c *HTTPClient) Transcribe(ctx context.Context, audio []byte, language string) (*Transcript, error) {
	// Acquire semaphore for rate limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	var lastErr error

	// Retry loop with exponential backoff
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()
			if c.onRetry != nil {
				c.onRetry(attempt, lastErr)
			}

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * backoffUnit
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		transcript, err := c.doRequest(ctx, audio, language)
		if err == nil {
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(time.Since(startTime))
			return transcript, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	c.incrementFailedRequests()
	return nil, fmt.Errorf("transcription failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// backoffUnit is the first retry delay; tests shorten it.
var backoffUnit = time.Second

// doRequest performs a single HTTP request to the transcription API
func (c *HTTPClient) doRequest(ctx context.Context, audio []byte, language string) (*Transcript, error) {
	body, contentType, err := c.createMultipartRequest(audio, language)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Nabrah-API/2.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	return parseVerboseJSON(respBody)
}

// createMultipartRequest creates a multipart/form-data request body
func (c *HTTPClient) createMultipartRequest(audio []byte, language string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := [][2]string{
		{"model", c.model},
		{"language", language},
		{"response_format", "verbose_json"},
		{"beam_size", "1"},
		{"condition_on_previous_text", "false"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// parseVerboseJSON reads the verbose_json transcription format shared by
// Whisper servers and the OpenAI API.
func parseVerboseJSON(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return &t, nil
}

// isRetryableError reports whether a request error is worth retrying:
// timeouts, connection failures, rate limiting and 5xx answers.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Statistics methods
func (c *HTTPClient) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *HTTPClient) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *HTTPClient) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *HTTPClient) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *HTTPClient) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *HTTPClient) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}
