package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"aws-gateway/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	srv := newEchoBackend(t)
	cfg := testConfig(srv.URL)

	proxy := NewProxyHandler(newTestGateway(cfg, &memStore{}), discard())
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /gateway/status", http.MethodGet, "/gateway/status", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET public path", http.MethodGet, "/idp/member/check?phone=1", http.StatusOK},
		{"POST token path", http.MethodPost, "/wallet/topup", http.StatusOK},
		{"DELETE token path", http.MethodDelete, "/wallet/card/1", http.StatusOK},
		{"TRACE rejected by gateway", http.MethodTrace, "/wallet/card/1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
