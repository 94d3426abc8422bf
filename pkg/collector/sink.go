package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
)

// Sink receives flushed event batches. Implementations must treat a batch
// as a single unit; a returned error requeues the whole batch.
type Sink interface {
	Deliver(events []*analytics.InteractionEvent) error
}

// HTTPSink posts batches to an IntakeFlow ingestion endpoint.
type HTTPSink struct {
	client        *http.Client
	baseURL       string
	tenantID      string
	applicationID string
}

// NewHTTPSink creates a sink for one application's event stream.
func NewHTTPSink(baseURL, tenantID, applicationID string) *HTTPSink {
	return &HTTPSink{
		client:        &http.Client{Timeout: 10 * time.Second},
		baseURL:       baseURL,
		tenantID:      tenantID,
		applicationID: applicationID,
	}
}

// Deliver posts one batch. Any non-2xx response is an error so the queue
// retries the batch on its next flush.
func (s *HTTPSink) Deliver(events []*analytics.InteractionEvent) error {
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("failed to encode event batch: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/analytics/%s/events", s.baseURL, s.applicationID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ingestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", s.tenantID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ingestion request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingestion endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
