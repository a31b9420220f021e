package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"catalog_enricher/internal/processing"
	"catalog_enricher/internal/retry"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config
	mutex      sync.Mutex
	// Metrics
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, topic string, enabled bool, priority string, retryConfig retry.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		retry:    retryConfig,
	}
}

// Enabled reports whether messages are actually sent
func (c *Client) Enabled() bool {
	return c.enabled
}

// SendNotification posts one message, retrying transient failures
func (c *Client) SendNotification(ctx context.Context, title, message string) error {
	return c.send(ctx, title, message, c.priority)
}

func (c *Client) send(ctx context.Context, title, message, priority string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) (struct{}, error) {
		err := c.sendSingleNotification(ctx, title, message, priority, attempt)
		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.totalFailed++
		return err
	}
	c.totalSent++
	return nil
}

func (c *Client) sendSingleNotification(ctx context.Context, title, message, priority string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Attempt: attempt, Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if priority != "" {
		req.Header.Set("Priority", priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errType := "network"
		if errors.Is(err, context.DeadlineExceeded) {
			errType = "timeout"
		}
		return &NotificationError{Type: errType, Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")

	return nil
}

// NotifyRunSummary sends the digest of a finished enrichment run. Failures are
// logged and returned but never affect the run itself.
func (c *Client) NotifyRunSummary(ctx context.Context, report *processing.Report) error {
	if !c.enabled || report == nil {
		return nil
	}

	priority := c.priority
	if report.FailedChunks > 0 {
		priority = "high"
	}

	log.Info().
		Str("run_id", report.RunID.String()).
		Int("chunks", len(report.Chunks)).
		Msg("Sending run summary notification")

	err := c.send(ctx, formatTitle(report), report.Summary(), priority)
	if err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID.String()).Msg("Run summary notification failed")
	}
	return err
}

func formatTitle(report *processing.Report) string {
	if report.FailedChunks > 0 {
		return fmt.Sprintf("Catalog enrichment: %d of %d chunks failed", report.FailedChunks, len(report.Chunks))
	}
	return fmt.Sprintf("Catalog enrichment: %d SKUs enriched", report.Success)
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
