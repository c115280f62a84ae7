package service

import (
	"context"
	"io"
	"log/slog"

	"aws-gateway/internal/client"
	"aws-gateway/internal/config"
	"aws-gateway/internal/model"
	"aws-gateway/internal/storage"
)

type fakeStore struct {
	puts []*storage.Object
	err  error
}

func (s *fakeStore) Put(_ context.Context, obj *storage.Object) error {
	s.puts = append(s.puts, obj)
	return s.err
}

type fakeValidator struct {
	sigResp *model.OutboundResponse
	sigErr  error
	tokResp *model.OutboundResponse
	tokErr  error

	sigCalls  int
	sigBody   string
	sigPath   string
	tokCalls  int
	tokenReqs []*model.InboundRequest
}

func (v *fakeValidator) ValidateSignature(_ context.Context, body, path string) (*model.OutboundResponse, error) {
	v.sigCalls++
	v.sigBody, v.sigPath = body, path
	return v.sigResp, v.sigErr
}

func (v *fakeValidator) ValidateToken(_ context.Context, req *model.InboundRequest) (*model.OutboundResponse, error) {
	v.tokCalls++
	v.tokenReqs = append(v.tokenReqs, req)
	return v.tokResp, v.tokErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Storage: config.StorageConfig{
			Bucket:       "uploads",
			Key:          "image.jpg",
			ContentType:  "image/jpeg",
			CacheControl: "public, max-age=31536000",
		},
	}
}

func newTestForwarder(cfg *config.Config, store storage.ObjectStore) *Forwarder {
	logger := discardLogger()
	bc := client.NewBackendClient(cfg, logger, nil)
	return NewForwarder(bc, NewUploadRelay(store, cfg, logger, nil), logger)
}
