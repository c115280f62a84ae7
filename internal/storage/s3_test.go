package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type fakeS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.input = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	api := &fakeS3{}
	store := NewS3StoreWithAPI(api, "uploads", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := store.Put(context.Background(), &Object{
		Key:          "image.jpg",
		Body:         []byte("jpeg-bytes"),
		ContentType:  "image/jpeg",
		CacheControl: "public, max-age=31536000",
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	in := api.input
	if got := aws.StringValue(in.Bucket); got != "uploads" {
		t.Errorf("Bucket = %q, want %q", got, "uploads")
	}
	if got := aws.StringValue(in.Key); got != "image.jpg" {
		t.Errorf("Key = %q, want %q", got, "image.jpg")
	}
	if got := aws.Int64Value(in.ContentLength); got != int64(len("jpeg-bytes")) {
		t.Errorf("ContentLength = %d, want %d", got, len("jpeg-bytes"))
	}
	if got := aws.StringValue(in.ContentType); got != "image/jpeg" {
		t.Errorf("ContentType = %q, want %q", got, "image/jpeg")
	}
	if got := aws.StringValue(in.CacheControl); got != "public, max-age=31536000" {
		t.Errorf("CacheControl = %q", got)
	}
	if string(api.body) != "jpeg-bytes" {
		t.Errorf("body = %q, want %q", api.body, "jpeg-bytes")
	}
}

func TestS3Store_Put_Error(t *testing.T) {
	api := &fakeS3{err: errors.New("AccessDenied")}
	store := NewS3StoreWithAPI(api, "uploads", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := store.Put(context.Background(), &Object{Key: "image.jpg"})
	if err == nil {
		t.Fatal("Put() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "s3://uploads/image.jpg") || !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("error = %q, want bucket/key and cause", err)
	}
}
