package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"aws-gateway/internal/client"
	"aws-gateway/internal/config"
	"aws-gateway/internal/model"
	"aws-gateway/internal/service"
	"aws-gateway/internal/storage"
)

type allowAll struct {
	headers map[string]string
}

func (a allowAll) ValidateSignature(context.Context, string, string) (*model.OutboundResponse, error) {
	return &model.OutboundResponse{StatusCode: http.StatusOK}, nil
}

func (a allowAll) ValidateToken(_ context.Context, req *model.InboundRequest) (*model.OutboundResponse, error) {
	h := a.headers
	if h == nil {
		h = req.Headers
	}
	return &model.OutboundResponse{StatusCode: http.StatusOK, Headers: h}, nil
}

type memStore struct {
	objects map[string][]byte
}

func (s *memStore) Put(_ context.Context, obj *storage.Object) error {
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[obj.Key] = obj.Body
	return nil
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Runtime: config.RuntimeConfig{Mode: config.ModeServe},
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Validator: config.ValidatorConfig{Mode: config.ValidatorHTTP},
		Storage:   config.StorageConfig{Key: "image.jpg", ContentType: "image/jpeg"},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestGateway(cfg *config.Config, store storage.ObjectStore) *service.Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bc := client.NewBackendClient(cfg, logger, nil)
	fwd := service.NewForwarder(bc, service.NewUploadRelay(store, cfg, logger, nil), logger)
	return service.NewGateway(cfg, allowAll{}, fwd, logger, nil)
}

// newEchoBackend returns a backend that echoes the request method and path.
func newEchoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(r.Method + " " + r.URL.RequestURI() + " " + string(body)))
	}))
	t.Cleanup(srv.Close)
	return srv
}
