package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"strings"

	"aws-gateway/internal/config"
	"aws-gateway/internal/metrics"
	"aws-gateway/internal/storage"
)

// ErrMissingBoundary is returned when a multipart Content-Type has no boundary.
var ErrMissingBoundary = errors.New("multipart boundary missing from Content-Type")

// ErrNoParts is returned when the multipart body holds no part for the boundary.
var ErrNoParts = errors.New("multipart body has no parts")

// RelayedUpload is the rebuilt multipart body to forward in place of the original.
type RelayedUpload struct {
	Body        *bytes.Buffer
	ContentType string
}

// UploadRelay extracts an uploaded image, stores it and repackages it for the backend.
//
// Every upload is written to the same key, so each one replaces the last and
// concurrent uploads race with the last write winning.
type UploadRelay struct {
	store        storage.ObjectStore
	key          string
	contentType  string
	cacheControl string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewUploadRelay creates an UploadRelay writing to cfg.Storage.Key.
// The metrics parameter is optional.
func NewUploadRelay(store storage.ObjectStore, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UploadRelay {
	return &UploadRelay{
		store:        store,
		key:          cfg.Storage.Key,
		contentType:  cfg.Storage.ContentType,
		cacheControl: cfg.Storage.CacheControl,
		logger:       logger.With("component", "upload_relay"),
		metrics:      m,
	}
}

// Relay decodes the base64 body, concatenates every multipart part body,
// stores the result and returns a single-part multipart body named "file".
func (u *UploadRelay) Relay(ctx context.Context, contentType, body string) (*RelayedUpload, error) {
	payload, err := u.extract(contentType, body)
	if err != nil {
		u.record("error")
		return nil, err
	}

	err = u.store.Put(ctx, &storage.Object{
		Key:          u.key,
		Body:         payload,
		ContentType:  u.contentType,
		CacheControl: u.cacheControl,
	})
	if err != nil {
		u.record("error")
		return nil, fmt.Errorf("store upload: %w", err)
	}
	u.record("ok")
	u.logger.Info("upload stored", "key", u.key, "bytes", len(payload))

	return rebuild(payload)
}

func (u *UploadRelay) extract(contentType, body string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("decode upload body: %w", err)
	}

	boundary, err := boundaryOf(contentType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	parts := 0
	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		// An empty stream or a boundary that never appears ends in a wrapped EOF.
		if parts == 0 && errors.Is(err, io.EOF) {
			return nil, ErrNoParts
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart: %w", err)
		}
		parts++
		u.logger.Debug("multipart part", "name", part.FormName(), "filename", part.FileName())
		if _, err := io.Copy(&buf, part); err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}
	}
	if parts == 0 {
		return nil, ErrNoParts
	}
	return buf.Bytes(), nil
}

// boundaryOf returns the text after the first '=' of a multipart Content-Type.
func boundaryOf(contentType string) (string, error) {
	_, boundary, ok := strings.Cut(contentType, "=")
	boundary = strings.Trim(strings.TrimSpace(boundary), `"`)
	if !ok || boundary == "" {
		return "", ErrMissingBoundary
	}
	return boundary, nil
}

func rebuild(payload []byte) (*RelayedUpload, error) {
	var out bytes.Buffer
	w := multipart.NewWriter(&out)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"`)
	pw, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := pw.Write(payload); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	return &RelayedUpload{Body: &out, ContentType: w.FormDataContentType()}, nil
}

func (u *UploadRelay) record(result string) {
	if u.metrics != nil {
		u.metrics.Uploads.WithLabelValues(result).Inc()
	}
}
