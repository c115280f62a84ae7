package main

import (
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"aws-gateway/internal/config"
	"aws-gateway/internal/handler"
	"aws-gateway/internal/metrics"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Runtime: config.RuntimeConfig{Mode: mode},
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8000, BodyMaxBytes: 1 << 20},
		Upstream: config.UpstreamConfig{
			BaseURL:         "https://backend.internal",
			TimeoutSeconds:  29,
			IdleConnections: 10,
		},
		Validator: config.ValidatorConfig{
			Mode:              config.ValidatorLambda,
			Region:            "ap-southeast-1",
			SignatureFunction: "signature-validator",
			TokenFunction:     "token-validator",
			TimeoutSeconds:    10,
		},
		Storage: config.StorageConfig{Region: "ap-southeast-1", Bucket: "uploads", Key: "image.jpg"},
		Log:     config.LogConfig{Level: "error", Format: "json"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestAppOptions_Lambda(t *testing.T) {
	var (
		h *handler.LambdaHandler
		m *metrics.Metrics
	)
	app := fx.New(appOptions(testConfig(config.ModeLambda)), fx.NopLogger, fx.Populate(&h, &m))
	if err := app.Err(); err != nil {
		t.Fatalf("fx.New() error = %v", err)
	}
	if h == nil {
		t.Error("LambdaHandler not provided")
	}
	if m != nil {
		t.Error("lambda mode should not build a metrics registry")
	}

	// Echo belongs to serve mode only.
	app = fx.New(appOptions(testConfig(config.ModeLambda)), fx.NopLogger, fx.Invoke(func(*echo.Echo) {}))
	if app.Err() == nil {
		t.Error("lambda mode provided *echo.Echo, want it missing")
	}
}

func TestAppOptions_Serve(t *testing.T) {
	var (
		e *echo.Echo
		m *metrics.Metrics
	)
	app := fx.New(appOptions(testConfig(config.ModeServe)), fx.NopLogger, fx.Populate(&e, &m))
	if err := app.Err(); err != nil {
		t.Fatalf("fx.New() error = %v", err)
	}
	if e == nil || m == nil {
		t.Fatalf("serve mode: echo=%v metrics=%v, want both", e, m)
	}

	paths := make(map[string]bool)
	for _, r := range e.Routes() {
		paths[r.Path] = true
	}
	for _, want := range []string{"/healthz", "/gateway/status", "/metrics", "/*"} {
		if !paths[want] {
			t.Errorf("route %s not registered", want)
		}
	}

	app = fx.New(appOptions(testConfig(config.ModeServe)), fx.NopLogger, fx.Invoke(func(*handler.LambdaHandler) {}))
	if app.Err() == nil {
		t.Error("serve mode provided *handler.LambdaHandler, want it missing")
	}
}
