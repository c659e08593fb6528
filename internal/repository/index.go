package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/mess-connect/internal/kv"
)

// Page size bounds applied to every listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Index is the ordered id list of one entity kind. It exists because the
// key-value store cannot enumerate records; every live id of the kind is
// expected to appear in it exactly once.
type Index struct {
	store kv.Store
	name  string
}

func NewIndex(store kv.Store, name string) *Index {
	return &Index{store: store, name: name}
}

// ClampLimit maps a requested page size onto [1, MaxPageSize], using
// DefaultPageSize for zero or negative values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

func (i *Index) Add(ctx context.Context, ids ...string) error {
	if err := i.store.IndexAdd(ctx, i.name, ids...); err != nil {
		return fmt.Errorf("index %s add: %w", i.name, err)
	}
	return nil
}

func (i *Index) Remove(ctx context.Context, ids ...string) error {
	if err := i.store.IndexRemove(ctx, i.name, ids...); err != nil {
		return fmt.Errorf("index %s remove: %w", i.name, err)
	}
	return nil
}

// Page returns up to limit ids after cursor, in insertion order.
func (i *Index) Page(ctx context.Context, cursor string, limit int) (kv.Page, error) {
	p, err := i.store.IndexPage(ctx, i.name, cursor, ClampLimit(limit))
	if errors.Is(err, kv.ErrInvalidCursor) {
		return kv.Page{}, ErrInvalidCursor
	}
	if err != nil {
		return kv.Page{}, fmt.Errorf("index %s page: %w", i.name, err)
	}
	return p, nil
}

func (i *Index) Count(ctx context.Context) (int, error) {
	n, err := i.store.IndexCount(ctx, i.name)
	if err != nil {
		return 0, fmt.Errorf("index %s count: %w", i.name, err)
	}
	return n, nil
}

// IDs walks the whole index.
func (i *Index) IDs(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor string
	)
	for {
		p, err := i.Page(ctx, cursor, MaxPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, p.IDs...)
		if p.Next == "" {
			return out, nil
		}
		cursor = p.Next
	}
}
