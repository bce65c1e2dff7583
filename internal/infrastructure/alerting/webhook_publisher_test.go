package alerting

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/platform/resilience"
	"github.com/statfuse/statfuse/internal/usecase"
)

func testSummary() usecase.RunSummary {
	return usecase.RunSummary{
		Provider:  "oddsapi",
		Sport:     sport.MLB,
		Inserted:  3,
		Updated:   1,
		Skipped:   2,
		Ambiguous: 1,
		Conflicts: 0,
		Errors:    1,
	}
}

func TestWebhookPublisher_PostsSummary(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewWebhookPublisher(WebhookPublisherConfig{
		URL:       server.URL,
		AuthToken: "token-123",
		Timeout:   2 * time.Second,
	}, nil)

	err := publisher.PublishRunSummary(context.Background(), testSummary(), nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer token-123", gotAuth)

	var payload runSummaryPayload
	require.NoError(t, sonic.Unmarshal(gotBody, &payload))
	require.Equal(t, "oddsapi", payload.Provider)
	require.Equal(t, "mlb", payload.Sport)
	require.Equal(t, "ok", payload.Status)
	require.Equal(t, 3, payload.Inserted)
	require.Contains(t, payload.Text, "ingestion oddsapi/mlb")
	require.Contains(t, payload.Text, "inserted=3")
	require.Empty(t, payload.Error)
}

func TestWebhookPublisher_ReportsFailedRun(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewWebhookPublisher(WebhookPublisherConfig{URL: server.URL}, nil)

	err := publisher.PublishRunSummary(context.Background(), testSummary(), context.DeadlineExceeded)
	require.NoError(t, err)

	var payload runSummaryPayload
	require.NoError(t, sonic.Unmarshal(gotBody, &payload))
	require.Equal(t, "failed", payload.Status)
	require.NotEmpty(t, payload.Error)
	require.Contains(t, payload.Text, "FAILED")
}

func TestWebhookPublisher_Non2xxIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	publisher := NewWebhookPublisher(WebhookPublisherConfig{URL: server.URL}, nil)

	err := publisher.PublishRunSummary(context.Background(), testSummary(), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errWebhookTransient)
}

func TestWebhookPublisher_CircuitOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	publisher := NewWebhookPublisher(WebhookPublisherConfig{
		URL: server.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, nil)

	ctx := context.Background()
	summary := testSummary()
	require.Error(t, publisher.PublishRunSummary(ctx, summary, nil))
	require.Error(t, publisher.PublishRunSummary(ctx, summary, nil))

	// The breaker is open now; the endpoint must not see a third call.
	err := publisher.PublishRunSummary(ctx, summary, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.Equal(t, int32(2), hits.Load())
}

func TestWebhookPublisher_InvalidURL(t *testing.T) {
	t.Parallel()

	publisher := NewWebhookPublisher(WebhookPublisherConfig{URL: "ftp://example.com/hook"}, nil)
	err := publisher.PublishRunSummary(context.Background(), testSummary(), nil)
	require.Error(t, err)
}
