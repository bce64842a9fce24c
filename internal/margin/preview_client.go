package margin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// PreviewTimeout is the hard deadline spec.md §4.3/§6 mandates for the
// margin-preview call.
const PreviewTimeout = 35 * time.Second

// previewRequest mirrors the POST body spec.md §6 names.
type previewRequest struct {
	Instrument     string                `json:"instrument"`
	Direction      domain.Direction      `json:"direction"`
	Quantity       float64               `json:"quantity"`
	OrderType      domain.OrderType      `json:"order_type"`
	InstrumentType domain.InstrumentType `json:"instrument_type"`
	Expiry         string                `json:"expiry,omitempty"`
	Exchange       string                `json:"exchange,omitempty"`
}

type previewResponse struct {
	MarginImpact struct {
		InitMarginChange  float64 `json:"init_margin_change"`
		MaintMarginChange float64 `json:"maint_margin_change"`
		Commission        float64 `json:"commission"`
	} `json:"margin_impact"`
}

// previewResult is the parsed subset margin.go consumes.
type previewResult struct {
	InitMarginChange  float64
	MaintMarginChange float64
}

// PreviewClient calls the external margin-preview HTTP service, which is an
// out-of-scope black box per spec.md §1 — only the client is built here.
// A circuit breaker guards against hammering it during an outage.
type PreviewClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewPreviewClient builds a client bound to baseURL (e.g.
// "https://margin-preview.internal/api/v1").
func NewPreviewClient(baseURL string) *PreviewClient {
	return &PreviewClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: PreviewTimeout},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "margin-preview",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Preview calls POST /account/{id}/margin-preview with a 35s deadline, per
// spec.md §4.3. It never retries and never falls back silently.
func (c *PreviewClient) Preview(ctx context.Context, in Input) (*previewResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doPreview(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return out.(*previewResult), nil
}

func (c *PreviewClient) doPreview(ctx context.Context, in Input) (*previewResult, error) {
	ctx, cancel := context.WithTimeout(ctx, PreviewTimeout)
	defer cancel()

	body, err := json.Marshal(previewRequest{
		Instrument:     in.Instrument,
		Direction:      in.Direction,
		Quantity:       in.Quantity,
		InstrumentType: in.InstrumentType,
		Expiry:         in.Expiry,
		Exchange:       in.Exchange,
	})
	if err != nil {
		return nil, fmt.Errorf("margin preview: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/account/%s/margin-preview", c.baseURL, in.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("margin preview: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("margin preview: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("margin preview: unexpected status %d", resp.StatusCode)
	}

	var parsed previewResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("margin preview: decode response: %w", err)
	}

	return &previewResult{
		InitMarginChange:  parsed.MarginImpact.InitMarginChange,
		MaintMarginChange: parsed.MarginImpact.MaintMarginChange,
	}, nil
}
