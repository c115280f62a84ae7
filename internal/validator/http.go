package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"aws-gateway/internal/model"
)

// HTTPValidator calls a validator service exposing
// POST {base}/signature and POST {base}/token.
type HTTPValidator struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewHTTPValidator creates an HTTPValidator rooted at baseURL.
func NewHTTPValidator(hc *http.Client, baseURL string, logger *slog.Logger) *HTTPValidator {
	return &HTTPValidator{
		httpClient: hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("component", "http_validator"),
	}
}

// ValidateSignature posts the raw body and path to the signature endpoint.
func (v *HTTPValidator) ValidateSignature(ctx context.Context, body, path string) (*model.OutboundResponse, error) {
	return v.post(ctx, "/signature", signatureRequest{Body: body, Path: path})
}

// ValidateToken posts the full inbound request to the token endpoint.
func (v *HTTPValidator) ValidateToken(ctx context.Context, req *model.InboundRequest) (*model.OutboundResponse, error) {
	return v.post(ctx, "/token", req.ProxyEvent())
}

func (v *HTTPValidator) post(ctx context.Context, endpoint string, payload any) (*model.OutboundResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode validator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build validator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	v.logger.Debug("calling validator", "endpoint", endpoint)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validator request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read validator response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("validator %s: status %d", endpoint, resp.StatusCode)
	}

	return decodeResponse(raw)
}
