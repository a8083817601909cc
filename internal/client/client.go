package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaille/ods/internal/domain"
)

// DefaultTimeout bounds every request unless overridden
const DefaultTimeout = 30 * time.Second

// responses larger than this are truncated before decoding
const maxResponseBytes = 5 * 1024 * 1024

// Endpoint paths on the classification service
const (
	PathPredict = "/predict"
	PathRetrain = "/retrain"
	PathHealth  = "/health"
)

// Client talks to the ODS classification service
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero keeps the timeout of the
// HTTP client in use.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. hc itself is never
// modified; the timeout is applied to a copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a new Client for the service at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the service address requests go to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type instance struct {
	Textos string `json:"textos"`
}

type predictRequest struct {
	Instances []instance `json:"instances"`
}

type predictResponse struct {
	Predictions []domain.ClassificationResult `json:"predictions"`
}

type retrainRequest struct {
	Instances domain.TrainingBatch `json:"instances"`
}

type retrainResponse struct {
	F1               *float64 `json:"f1"`
	Precision        *float64 `json:"precision"`
	Recall           *float64 `json:"recall"`
	ModelVersionPath string   `json:"model_version_path"`
}

// Classify sends text as a single-instance batch and returns the first
// prediction
func (c *Client) Classify(ctx context.Context, text string) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	var resp predictResponse
	err := c.do(ctx, http.MethodPost, PathPredict, predictRequest{
		Instances: []instance{{Textos: text}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Predictions) == 0 {
		return nil, &domain.ProtocolError{Reason: "predictions is empty"}
	}

	result := resp.Predictions[0]
	return &result, nil
}

// Retrain submits the whole batch in one request and returns the reported
// metrics
func (c *Client) Retrain(ctx context.Context, batch domain.TrainingBatch) (*domain.TrainingMetrics, error) {
	if batch == nil {
		batch = domain.TrainingBatch{}
	}

	var resp retrainResponse
	if err := c.do(ctx, http.MethodPost, PathRetrain, retrainRequest{Instances: batch}, &resp); err != nil {
		return nil, err
	}

	if resp.F1 == nil || resp.Precision == nil || resp.Recall == nil {
		return nil, &domain.ProtocolError{Reason: "metrics missing from retrain response"}
	}

	return &domain.TrainingMetrics{
		F1:               *resp.F1,
		Precision:        *resp.Precision,
		Recall:           *resp.Recall,
		ModelVersionPath: resp.ModelVersionPath,
	}, nil
}

// Health checks the service and reports the active model
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	var resp domain.HealthStatus
	if err := c.do(ctx, http.MethodGet, PathHealth, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	start := time.Now()
	outcome := outcomeTransport
	defer func() {
		observe(path, outcome, time.Since(start))
	}()

	body := io.Reader(http.NoBody)
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			outcome = outcomeEncode
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		outcome = outcomeEncode
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("url", req.URL.String()),
	)
	log.Debug("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	log.Debug("Received response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeServerError
		return &domain.ServerError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Header.Get("Content-Type"), raw),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		outcome = outcomeProtocolError
		return &domain.ProtocolError{Reason: "empty response body"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		outcome = outcomeProtocolError
		return &domain.ProtocolError{Reason: "decode response body", Err: err}
	}

	outcome = outcomeOK
	return nil
}
