package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"aws-gateway/internal/config"
	"aws-gateway/internal/policy"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg        *config.Config
	version    Version
	classifier *policy.Classifier
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{
		cfg:        cfg,
		version:    v,
		classifier: policy.NewClassifier(cfg.Routes.SignatureFragments, cfg.Routes.PublicPaths),
	}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type routesStatus struct {
	SignatureFragments int  `json:"signature_fragments"`
	PublicPaths        int  `json:"public_paths"`
	Custom             bool `json:"custom"`
}

type uploadStatus struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type statusResponse struct {
	Status         string       `json:"status"`
	Version        string       `json:"version"`
	Mode           string       `json:"mode"`
	UpstreamURL    string       `json:"upstream_url"`
	ValidatorMode  string       `json:"validator_mode"`
	CircuitBreaker bool         `json:"circuit_breaker"`
	Routes         routesStatus `json:"routes"`
	Upload         uploadStatus `json:"upload"`
}

// Status reports how the gateway is configured: where requests go, which
// validator decides them, how large the policy tables are and where uploads land.
func (h *HealthHandler) Status(c echo.Context) error {
	fragments, public := h.classifier.Sizes()
	routes := h.cfg.Routes

	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		Mode:           h.cfg.Runtime.Mode,
		UpstreamURL:    h.cfg.Upstream.BaseURL,
		ValidatorMode:  h.cfg.Validator.Mode,
		CircuitBreaker: h.cfg.Upstream.CircuitBreaker.Enabled,
		Routes: routesStatus{
			SignatureFragments: fragments,
			PublicPaths:        public,
			Custom:             len(routes.SignatureFragments) > 0 || len(routes.PublicPaths) > 0,
		},
		Upload: uploadStatus{
			Bucket: h.cfg.Storage.Bucket,
			Key:    h.cfg.Storage.Key,
		},
	})
}
