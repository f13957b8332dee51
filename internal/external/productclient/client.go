package productclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/pkg/correlation"
)

// HTTPClient implements order.ProductReader against the product service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   RetryConfig
}

var _ order.ProductReader = (*HTTPClient)(nil)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func New(cfg Config) *HTTPClient {
	retryCfg := DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		retryCfg.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		retryCfg.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		retryCfg.MaxDelay = cfg.RetryMaxDelay
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 200,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryCfg: retryCfg,
	}
}

// GetProduct fetches GET /products/:id, forwarding the request id.
func (c *HTTPClient) GetProduct(ctx context.Context, id int64) (order.Product, error) {
	var p order.Product
	err := retryUnavailable(ctx, c.retryCfg, func(ctx context.Context) error {
		var err error
		p, err = c.getProduct(ctx, id)
		return err
	})
	return p, err
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) getProduct(ctx context.Context, id int64) (order.Product, error) {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return order.Product{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqID := correlation.FromContext(ctx); reqID != "" {
		req.Header.Set(correlation.HeaderName, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return order.Product{}, fmt.Errorf("%w: %v", order.ErrProductUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		var p order.Product
		if err := json.Unmarshal(body, &p); err != nil {
			return order.Product{}, fmt.Errorf("decode product: %w", err)
		}
		return p, nil
	case resp.StatusCode == http.StatusNotFound:
		return order.Product{}, order.ErrProductNotFound
	case resp.StatusCode >= 500:
		return order.Product{}, fmt.Errorf("%w: status %d, body: %s", order.ErrProductUnavailable, resp.StatusCode, string(body))
	default:
		return order.Product{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
}
