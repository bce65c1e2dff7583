package alerting

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/statfuse/statfuse/internal/platform/logging"
	"github.com/statfuse/statfuse/internal/platform/resilience"
	"github.com/statfuse/statfuse/internal/usecase"
)

var errWebhookTransient = crerr.New("webhook transient failure")

type WebhookPublisherConfig struct {
	URL            string
	AuthToken      string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookPublisher posts finished run summaries to an operator webhook.
// A breaker guards the endpoint so a dead webhook cannot slow down
// ingestion itself.
type WebhookPublisher struct {
	client         *fasthttp.Client
	url            string
	authToken      string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhookPublisher(cfg WebhookPublisherConfig, logger *logging.Logger) *WebhookPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookPublisher{
		client:         &fasthttp.Client{},
		url:            strings.TrimSpace(cfg.URL),
		authToken:      strings.TrimSpace(cfg.AuthToken),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type runSummaryPayload struct {
	Provider  string `json:"provider"`
	Sport     string `json:"sport"`
	Status    string `json:"status"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Ambiguous int    `json:"ambiguous"`
	Conflicts int    `json:"conflicts"`
	Errors    int    `json:"errors"`
	Text      string `json:"text"`
	Error     string `json:"error,omitempty"`
}

func (p *WebhookPublisher) PublishRunSummary(ctx context.Context, summary usecase.RunSummary, runErr error) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "webhook circuit breaker rejected request", "state", p.breaker.State())
			return fmt.Errorf("webhook is temporarily unavailable: %w", err)
		}
	}

	endpoint, err := validateHTTPURL(p.url)
	if err != nil {
		return crerr.Wrap(err, "invalid ALERT_WEBHOOK_URL")
	}

	payload := runSummaryPayload{
		Provider:  summary.Provider,
		Sport:     summary.Sport.String(),
		Status:    "ok",
		Inserted:  summary.Inserted,
		Updated:   summary.Updated,
		Skipped:   summary.Skipped,
		Ambiguous: summary.Ambiguous,
		Conflicts: summary.Conflicts,
		Errors:    summary.Errors,
		Text:      formatSummaryText(summary, runErr),
	}
	if runErr != nil {
		payload.Status = "failed"
		payload.Error = runErr.Error()
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal run summary payload")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}
	req.SetBody(body)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		callErr := fmt.Errorf("%w: post run summary url=%s: %v", errWebhookTransient, endpoint, err)
		p.recordCircuitResult(callErr)
		return callErr
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		raw := resp.Body()
		if len(raw) > 4096 {
			raw = raw[:4096]
		}
		callErr := fmt.Errorf("%w: post run summary status=%d url=%s body=%s",
			errWebhookTransient, status, endpoint, strings.TrimSpace(string(raw)))
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.logger.InfoContext(ctx, "run summary published", "provider", summary.Provider, "sport", summary.Sport.String(), "status", payload.Status)
	p.recordCircuitResult(nil)
	return nil
}

// formatSummaryText renders the one-line message an operator sees in
// the alert channel.
func formatSummaryText(summary usecase.RunSummary, runErr error) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendCounter := func(label string, value int) {
		_, _ = buf.WriteString(" ")
		_, _ = buf.WriteString(label)
		_, _ = buf.WriteString("=")
		_, _ = buf.WriteString(strconv.Itoa(value))
	}

	_, _ = buf.WriteString("ingestion ")
	_, _ = buf.WriteString(summary.Provider)
	_, _ = buf.WriteString("/")
	_, _ = buf.WriteString(summary.Sport.String())
	if runErr != nil {
		_, _ = buf.WriteString(" FAILED")
	}
	appendCounter("inserted", summary.Inserted)
	appendCounter("updated", summary.Updated)
	appendCounter("skipped", summary.Skipped)
	appendCounter("ambiguous", summary.Ambiguous)
	appendCounter("conflicts", summary.Conflicts)
	appendCounter("errors", summary.Errors)

	return buf.String()
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return candidate, nil
}

func (p *WebhookPublisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err == nil {
		p.breaker.RecordSuccess()
		return
	}
	if crerr.Is(err, errWebhookTransient) {
		p.breaker.RecordFailure()
	}
}
