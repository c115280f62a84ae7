package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"aws-gateway/internal/config"
	"aws-gateway/internal/metrics"
	"aws-gateway/internal/model"
	"aws-gateway/internal/policy"
	"aws-gateway/internal/validator"
)

// Gateway validates inbound requests according to their path and forwards
// the ones that pass to the backend.
type Gateway struct {
	classifier *policy.Classifier
	validator  validator.Validator
	forwarder  *Forwarder
	baseURL    string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewGateway creates a Gateway. The metrics parameter is optional.
func NewGateway(cfg *config.Config, v validator.Validator, fwd *Forwarder, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		classifier: policy.NewClassifier(cfg.Routes.SignatureFragments, cfg.Routes.PublicPaths),
		validator:  v,
		forwarder:  fwd,
		baseURL:    cfg.Upstream.BaseURL,
		logger:     logger.With("component", "gateway"),
		metrics:    m,
	}
}

// Handle produces exactly one response for req: the validator's rejection,
// the backend's answer, or an error response.
// Requests arriving without an ID get a fresh one for log correlation.
func (g *Gateway) Handle(ctx context.Context, req *model.InboundRequest) *model.OutboundResponse {
	if req.RequestID == "" {
		withID := *req
		withID.RequestID = uuid.NewString()
		req = &withID
	}

	target := g.baseURL + req.Path
	p := g.classifier.Classify(req.Path)

	g.logger.Info("request received",
		"request_id", req.RequestID,
		"method", req.Method,
		"path", req.Path,
		"policy", p.String(),
	)

	switch p {
	case policy.Signature:
		return g.withSignature(ctx, req, target)
	case policy.None:
		g.record(p, metrics.OutcomeAllowed)
		return g.forward(ctx, req, target)
	default:
		return g.withToken(ctx, req, target)
	}
}

func (g *Gateway) withSignature(ctx context.Context, req *model.InboundRequest, target string) *model.OutboundResponse {
	resp, err := g.validator.ValidateSignature(ctx, req.Body, req.Path)
	if err != nil {
		return g.fail(policy.Signature, req, err)
	}
	if !resp.OK() {
		return g.reject(policy.Signature, req, resp)
	}

	g.record(policy.Signature, metrics.OutcomeAllowed)
	return g.forward(ctx, req, target)
}

func (g *Gateway) withToken(ctx context.Context, req *model.InboundRequest, target string) *model.OutboundResponse {
	resp, err := g.validator.ValidateToken(ctx, req)
	if err != nil {
		return g.fail(policy.Token, req, err)
	}
	if !resp.OK() {
		return g.reject(policy.Token, req, resp)
	}
	g.record(policy.Token, metrics.OutcomeAllowed)

	// The validator's headers replace the caller's entirely.
	validated := *req
	validated.Headers = resp.Headers
	return g.forward(ctx, &validated, target)
}

func (g *Gateway) forward(ctx context.Context, req *model.InboundRequest, target string) *model.OutboundResponse {
	resp, err := g.forwarder.Forward(ctx, req, target, SanitizeHeaders(req.Headers))
	if err == nil {
		return resp
	}

	if errors.Is(err, ErrMethodNotAllowed) {
		g.logger.Warn("method not allowed", "request_id", req.RequestID, "method", req.Method, "path", req.Path)
		return model.ErrorResponse(http.StatusMethodNotAllowed, "405", "Http Method is invalid")
	}

	g.logger.Error("forward failed", "request_id", req.RequestID, "err", err, "method", req.Method, "path", req.Path)
	return model.ErrorResponse(http.StatusInternalServerError, "500", err.Error())
}

func (g *Gateway) reject(p policy.Policy, req *model.InboundRequest, resp *model.OutboundResponse) *model.OutboundResponse {
	if resp == nil {
		return g.fail(p, req, validator.ErrEmptyResponse)
	}
	g.record(p, metrics.OutcomeRejected)
	g.logger.Info("validation rejected request",
		"request_id", req.RequestID,
		"policy", p.String(),
		"path", req.Path,
		"status", resp.StatusCode,
	)
	return resp
}

func (g *Gateway) fail(p policy.Policy, req *model.InboundRequest, err error) *model.OutboundResponse {
	g.record(p, metrics.OutcomeError)
	g.logger.Error("validation failed",
		"request_id", req.RequestID,
		"policy", p.String(),
		"path", req.Path,
		"err", err,
	)
	return model.ErrorResponse(http.StatusInternalServerError, "500", err.Error())
}

func (g *Gateway) record(p policy.Policy, outcome string) {
	if g.metrics != nil {
		g.metrics.PolicyDecisions.WithLabelValues(p.String(), outcome).Inc()
	}
}
