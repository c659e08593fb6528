package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/mess-connect/internal/kv"
)

// Entity is the generic persistence base every record kind is built on.
// A record of kind K with id X lives under the key "K:X" and X is listed
// in the index named K.
//
// There is no optimistic concurrency control: Patch is a read-merge-write
// and two concurrent patches of the same id race, the last write wins.
type Entity[T any] struct {
	store kv.Store
	kind  string
	index *Index
	idOf  func(*T) string
}

// NewEntity binds kind to store. idOf extracts the id from a record.
func NewEntity[T any](store kv.Store, kind string, idOf func(*T) string) *Entity[T] {
	return &Entity[T]{store: store, kind: kind, index: NewIndex(store, kind), idOf: idOf}
}

func (e *Entity[T]) Kind() string { return e.kind }

func (e *Entity[T]) key(id string) string { return e.kind + ":" + id }

func (e *Entity[T]) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := e.store.Exists(ctx, e.key(id))
	if err != nil {
		return false, fmt.Errorf("%s exists: %w", e.kind, err)
	}
	return ok, nil
}

// Create stores v and indexes its id. It fails with ErrExists when the id is
// taken. If indexing fails the record is removed again so it never exists
// unlisted.
func (e *Entity[T]) Create(ctx context.Context, v *T) error {
	id := e.idOf(v)
	if id == "" {
		return fmt.Errorf("%s create: empty id", e.kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s encode: %w", e.kind, err)
	}
	if err := e.store.Create(ctx, e.key(id), b); err != nil {
		if errors.Is(err, kv.ErrExists) {
			return ErrExists
		}
		return fmt.Errorf("%s create: %w", e.kind, err)
	}
	if err := e.index.Add(ctx, id); err != nil {
		_ = e.store.Delete(ctx, e.key(id))
		return err
	}
	return nil
}

// Put writes v unconditionally. Singletons use it; so does anything that
// needs to replace a whole record.
func (e *Entity[T]) Put(ctx context.Context, v *T) error {
	id := e.idOf(v)
	if id == "" {
		return fmt.Errorf("%s put: empty id", e.kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s encode: %w", e.kind, err)
	}
	if err := e.store.Put(ctx, e.key(id), b); err != nil {
		return fmt.Errorf("%s put: %w", e.kind, err)
	}
	return e.index.Add(ctx, id)
}

func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	b, err := e.store.Get(ctx, e.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s get: %w", e.kind, err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%s decode %s: %w", e.kind, id, err)
	}
	return &v, nil
}

// Patch shallow-merges the top-level JSON fields of partial onto the stored
// record. partial may be a map or a struct whose unset fields are omitted
// (omitempty pointers). The id field is never overwritten.
func (e *Entity[T]) Patch(ctx context.Context, id string, partial any) (*T, error) {
	cur, err := e.store.Get(ctx, e.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s get: %w", e.kind, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(cur, &fields); err != nil {
		return nil, fmt.Errorf("%s decode %s: %w", e.kind, id, err)
	}
	pb, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	var over map[string]json.RawMessage
	if err := json.Unmarshal(pb, &over); err != nil || over == nil {
		return nil, ErrInvalidPatch
	}
	delete(over, "id")
	for k, v := range over {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", e.kind, err)
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	b, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", e.kind, err)
	}
	if err := e.store.Put(ctx, e.key(id), b); err != nil {
		return nil, fmt.Errorf("%s patch: %w", e.kind, err)
	}
	return &out, nil
}

// Delete removes one record and its index entry. It returns ErrNotFound if
// the record did not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	n, err := e.DeleteMany(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes the records first and then their index entries, and
// reports how many of the ids existed. A failure between the two steps
// leaves dangling index entries, which List skips.
func (e *Entity[T]) DeleteMany(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(ids))
	existing := 0
	for _, id := range ids {
		ok, err := e.Exists(ctx, id)
		if err != nil {
			return 0, err
		}
		if ok {
			existing++
		}
		keys = append(keys, e.key(id))
	}
	if err := e.store.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("%s delete: %w", e.kind, err)
	}
	if err := e.index.Remove(ctx, ids...); err != nil {
		return 0, err
	}
	return existing, nil
}

// List returns one page of records in creation order and the cursor of the
// next page ("" when done).
func (e *Entity[T]) List(ctx context.Context, cursor string, limit int) ([]*T, string, error) {
	p, err := e.index.Page(ctx, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]*T, 0, len(p.IDs))
	for _, id := range p.IDs {
		v, err := e.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		out = append(out, v)
	}
	return out, p.Next, nil
}

// All loads every record of the kind.
func (e *Entity[T]) All(ctx context.Context) ([]*T, error) {
	var (
		out    []*T
		cursor string
	)
	for {
		page, next, err := e.List(ctx, cursor, MaxPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// Find returns every record for which keep returns true.
func (e *Entity[T]) Find(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	all, err := e.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// DeleteWhere removes every record matched by keep.
func (e *Entity[T]) DeleteWhere(ctx context.Context, keep func(*T) bool) (int, error) {
	matched, err := e.Find(ctx, keep)
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	ids := make([]string, len(matched))
	for i, v := range matched {
		ids[i] = e.idOf(v)
	}
	return e.DeleteMany(ctx, ids...)
}

func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	return e.index.Count(ctx)
}

// Clear deletes every indexed record of the kind.
func (e *Entity[T]) Clear(ctx context.Context) (int, error) {
	ids, err := e.index.IDs(ctx)
	if err != nil {
		return 0, err
	}
	return e.DeleteMany(ctx, ids...)
}
