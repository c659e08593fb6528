// Package kv defines the durable key-value namespace the entity layer is
// built on. A Store holds opaque records under string keys and a set of
// named, insertion-ordered id indexes that stand in for the range scans a
// plain key-value map does not offer.
package kv

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrNotFound is returned by Get when no record is stored under a key.
	ErrNotFound = errors.New("kv: key not found")
	// ErrExists is returned by Create when the key is already taken.
	ErrExists = errors.New("kv: key already exists")
	// ErrInvalidCursor is returned when a page cursor was not produced by
	// the same backend.
	ErrInvalidCursor = errors.New("kv: invalid cursor")
)

// Page is one slice of an index. Next is empty when the index has no
// members after the last returned id.
type Page struct {
	IDs  []string
	Next string
}

// Store is implemented by every backend. Create must be atomic: of two
// concurrent creates for the same key exactly one succeeds. Index
// operations are idempotent; adding a member that is already present keeps
// its original position.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, key string, value []byte) error
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error

	IndexAdd(ctx context.Context, index string, ids ...string) error
	IndexRemove(ctx context.Context, index string, ids ...string) error
	IndexPage(ctx context.Context, index, cursor string, limit int) (Page, error)
	IndexCount(ctx context.Context, index string) (int, error)
}

// parseCursor decodes the sequence cursor shared by all backends. The empty
// cursor means "from the start".
func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidCursor
	}
	return n, nil
}

func formatCursor(seq int64) string { return strconv.FormatInt(seq, 10) }
