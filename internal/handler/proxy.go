package handler

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"aws-gateway/internal/model"
	"aws-gateway/internal/service"
)

// ProxyHandler serves the gateway over plain HTTP in serve mode.
type ProxyHandler struct {
	gateway *service.Gateway
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(gw *service.Gateway, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		gateway: gw,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle converts the HTTP request into the gateway's request shape the
// same way API Gateway does, runs it and writes the single response.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.logger.Error("reading request body", "err", err, "path", req.URL.Path)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"code":    "400",
			"message": "unable to read request body",
		})
	}

	in := &model.InboundRequest{
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		Method:    req.Method,
		Path:      req.URL.Path,
		Headers:   flattenHeaders(req.Header),
		Query:     flatten(req.URL.Query()),
		Body:      string(body),
	}
	// API Gateway delivers binary media base64 encoded.
	if strings.Contains(req.Header.Get(echo.HeaderContentType), "multipart/form-data") {
		in.Body = base64.StdEncoding.EncodeToString(body)
	}
	if req.Host != "" {
		in.Headers["Host"] = req.Host
	}

	resp := h.gateway.Handle(req.Context(), in)

	for k, v := range resp.Headers {
		c.Response().Header().Set(k, v)
	}
	c.Response().WriteHeader(resp.StatusCode)
	if _, err := io.WriteString(c.Response(), resp.Body); err != nil {
		h.logger.Error("writing response body", "err", err, "path", req.URL.Path)
	}
	return nil
}

// flatten keeps the first value of every key, as API Gateway's
// single-value maps do.
func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, vals := range values {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// flattenHeaders is flatten for headers. net/http has canonicalised every
// key, so stripped headers get API Gateway's spelling back.
func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k, vals := range header {
		if len(vals) > 0 {
			out[service.EdgeHeaderName(k)] = vals[0]
		}
	}
	return out
}
