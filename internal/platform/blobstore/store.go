// Package blobstore keeps uploaded archives under string keys such as
// "problems/7/knapsack/1.0.zip". Keys always use forward slashes.
package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrExists is returned by Create when the key is already occupied.
	ErrExists = errors.New("blob already exists")
	// ErrNotExist is returned by Open when the key holds no blob.
	ErrNotExist = errors.New("blob does not exist")
)

type Store interface {
	// Create writes r under key and fails with ErrExists instead of replacing
	// an existing blob.
	Create(ctx context.Context, key string, r io.Reader) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// Pruner is implemented by stores with a real directory hierarchy.
type Pruner interface {
	// PruneEmptyParents removes empty directories above key, stopping at
	// (and never removing) stop.
	PruneEmptyParents(ctx context.Context, key, stop string) error
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}
