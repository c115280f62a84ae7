// Package client provides the outbound HTTP client for backend services.
package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"aws-gateway/internal/config"
	"aws-gateway/internal/metrics"
	"aws-gateway/internal/model"
)

// BackendClient sends forwarded requests to the backend services.
type BackendClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewHTTPClient returns an http.Client with connection pooling and the given timeout.
func NewHTTPClient(timeout time.Duration, idleConns int) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        idleConns,
		MaxIdleConnsPerHost: idleConns,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewBackendClient creates a BackendClient from the upstream settings.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	logger = logger.With("component", "backend_client")
	return &BackendClient{
		httpClient: NewHTTPClient(time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second, cfg.Upstream.IdleConnections),
		breaker:    newBreaker(cfg.Upstream.CircuitBreaker, logger, m),
		logger:     logger,
		metrics:    m,
	}
}

// Do executes req and returns the backend's status code and body.
// The response body is fully read and closed before Do returns.
// When the circuit breaker is enabled, transport errors and 5xx answers count
// as failures and an open breaker fails fast with ErrCircuitOpen.
func (c *BackendClient) Do(req *http.Request) (*model.OutboundResponse, error) {
	if c.breaker == nil {
		return c.do(req)
	}

	var resp *model.OutboundResponse
	_, err := c.breaker.Execute(func() (any, error) {
		var err error
		resp, err = c.do(req)
		if err == nil && resp.StatusCode >= http.StatusInternalServerError {
			return nil, errServerStatus
		}
		return nil, err
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, breakerError(err)
	}
	return resp, nil
}

func (c *BackendClient) do(req *http.Request) (*model.OutboundResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		c.observe(method, start, "")
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	c.observe(method, start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	return &model.OutboundResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

func (c *BackendClient) observe(method string, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}
}
