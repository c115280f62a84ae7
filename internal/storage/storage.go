// Package storage persists uploaded objects.
package storage

import "context"

// Object is a single blob written to the store.
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// ObjectStore writes objects to a bucket. A Put to an existing key
// replaces the previous object.
type ObjectStore interface {
	Put(ctx context.Context, obj *Object) error
}
