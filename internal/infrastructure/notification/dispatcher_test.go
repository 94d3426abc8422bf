package notification_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func TestDispatchDeliversPayload(t *testing.T) {
	var gotAPIKey string
	var gotContentType string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-Api-Key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := notification.NewDispatcher(newTestLogger(t))
	err := d.Dispatch(context.Background(), server.URL, "secret-key", map[string]string{
		"type":          "warm_lead",
		"applicationId": "app-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "warm_lead", gotBody["type"])
	assert.Equal(t, "app-1", gotBody["applicationId"])
}

func TestDispatchTreatsNon2xxAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := notification.NewDispatcher(newTestLogger(t))
	err := d.Dispatch(context.Background(), server.URL, "secret-key", map[string]string{"type": "warm_lead"})

	require.Error(t, err)
	var deliveryErr *notification.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusInternalServerError, deliveryErr.StatusCode)
}

func TestDispatchAccepts204(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := notification.NewDispatcher(newTestLogger(t))
	err := d.Dispatch(context.Background(), server.URL, "secret-key", map[string]string{"type": "warm_lead"})

	assert.NoError(t, err)
}

func TestDispatchSkipsUnconfiguredDestination(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	d := notification.NewDispatcher(newTestLogger(t))

	// Missing URL
	err := d.Dispatch(context.Background(), "", "secret-key", map[string]string{"type": "warm_lead"})
	assert.NoError(t, err)

	// Missing API key
	err = d.Dispatch(context.Background(), server.URL, "", map[string]string{"type": "warm_lead"})
	assert.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
}
