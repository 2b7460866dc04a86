package storage

import (
	"context"
	"errors"
)

// SnapshotStorage is the generic key-scoped blob store used to sync a user's
// plan collection with the remote copy. Semantics are at-least-once and
// last-write-wins; the plan service owns the merge logic, never the store.
type SnapshotStorage interface {
	// Put writes the snapshot blob for a key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the snapshot blob for a key. Returns ErrSnapshotNotFound
	// when no snapshot has ever been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the snapshot for a key.
	Delete(ctx context.Context, key string) error
}

var ErrSnapshotNotFound = errors.New("snapshot not found in storage")
