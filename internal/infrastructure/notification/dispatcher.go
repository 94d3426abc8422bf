// Package notification delivers outbound webhook payloads to CRM
// endpoints. Delivery is best effort; callers decide what a failed
// delivery means for their own state.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// DeliveryError describes a webhook delivery rejected by the remote end.
type DeliveryError struct {
	URL        string
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery to %s failed with status %d", e.URL, e.StatusCode)
}

// Dispatcher posts JSON payloads to configured webhook endpoints.
type Dispatcher struct {
	client *http.Client
	logger *logging.ChanneledLogger
}

// NewDispatcher creates a dispatcher with the configured delivery timeout.
func NewDispatcher(logger *logging.ChanneledLogger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: config.DispatchTimeout},
		logger: logger,
	}
}

// NewDispatcherWithClient creates a dispatcher with a caller-supplied client.
func NewDispatcherWithClient(client *http.Client, logger *logging.ChanneledLogger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger,
	}
}

// Configured reports whether a destination is usable.
// Both a URL and an API key are required before anything leaves the process.
func Configured(url, apiKey string) bool {
	return url != "" && apiKey != ""
}

// Dispatch posts the payload as JSON to the given URL. When the
// destination is unconfigured it returns nil without any network call.
func (d *Dispatcher) Dispatch(ctx context.Context, url, apiKey string, payload any) error {
	if !Configured(url, apiKey) {
		d.logger.Dispatch().Debug("Webhook destination not configured, skipping dispatch")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Dispatch().Error("Webhook delivery failed",
			"error", err.Error(),
			"url", url,
			"duration", time.Since(start))
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Dispatch().Error("Webhook delivery rejected",
			"url", url,
			"status", resp.StatusCode,
			"duration", time.Since(start))
		return &DeliveryError{URL: url, StatusCode: resp.StatusCode}
	}

	d.logger.Dispatch().Info("Webhook delivered",
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return nil
}
