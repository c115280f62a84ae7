// Package service implements validation dispatch and request forwarding.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"aws-gateway/internal/client"
	"aws-gateway/internal/model"
)

// ErrMethodNotAllowed is returned for verbs the forwarder does not relay.
var ErrMethodNotAllowed = errors.New("http method is invalid")

// Forwarder issues exactly one backend request per inbound request.
type Forwarder struct {
	client  *client.BackendClient
	uploads *UploadRelay
	logger  *slog.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(c *client.BackendClient, uploads *UploadRelay, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		client:  c,
		uploads: uploads,
		logger:  logger.With("component", "forwarder"),
	}
}

// Forward sends req to target using the already sanitized headers.
//
// GET and POST carry the query parameters; the other relayed verbs drop them.
// POST bodies with a multipart/form-data content type go through the upload relay.
func (f *Forwarder) Forward(ctx context.Context, req *model.InboundRequest, target string, headers map[string]string) (*model.OutboundResponse, error) {
	switch req.Method {
	case http.MethodGet:
		return f.get(ctx, target, headers, req.Query)
	case http.MethodPost:
		return f.post(ctx, target, headers, req.Body, req.Query)
	case http.MethodPut, http.MethodOptions, http.MethodHead, http.MethodPatch, http.MethodDelete:
		return f.send(ctx, req.Method, target, headers, req.Body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrMethodNotAllowed, req.Method)
	}
}

func (f *Forwarder) get(ctx context.Context, target string, headers, query map[string]string) (*model.OutboundResponse, error) {
	f.logger.Info("forwarding", "method", http.MethodGet, "target", target)
	return f.do(ctx, http.MethodGet, withQuery(target, query), headers, nil)
}

func (f *Forwarder) post(ctx context.Context, target string, headers map[string]string, body string, query map[string]string) (*model.OutboundResponse, error) {
	target = withQuery(target, query)
	f.logger.Info("forwarding", "method", http.MethodPost, "target", target)

	ct := headerValue(headers, "Content-Type")
	if !strings.Contains(ct, "multipart/form-data") {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		return f.do(ctx, http.MethodPost, target, headers, r)
	}

	relayed, err := f.uploads.Relay(ctx, ct, body)
	if err != nil {
		return nil, fmt.Errorf("upload relay: %w", err)
	}

	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if !strings.EqualFold(k, "Content-Type") {
			out[k] = v
		}
	}
	out["Content-Type"] = relayed.ContentType
	return f.do(ctx, http.MethodPost, target, out, relayed.Body)
}

func (f *Forwarder) send(ctx context.Context, method, target string, headers map[string]string, body string) (*model.OutboundResponse, error) {
	f.logger.Info("forwarding", "method", method, "target", target)
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return f.do(ctx, method, target, headers, r)
}

func (f *Forwarder) do(ctx context.Context, method, target string, headers map[string]string, body io.Reader) (*model.OutboundResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	// Sorted so that keys which canonicalise to the same name resolve the same way every time.
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		req.Header.Set(k, headers[k])
	}

	return f.client.Do(req)
}

// withQuery appends query to target as URL-encoded key=value pairs in key order.
func withQuery(target string, query map[string]string) string {
	if len(query) == 0 {
		return target
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query[k]))
	}
	return target + "?" + b.String()
}

// headerValue returns headers[name], falling back to a case-insensitive match.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
