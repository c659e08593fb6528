package kv

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test:")
}

func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis":  newRedisTestStore,
	}
}

func TestStore_CreateGetPut(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			_, err := s.Get(ctx, "user:a")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Create(ctx, "user:a", []byte(`{"n":1}`)))
			assert.ErrorIs(t, s.Create(ctx, "user:a", []byte(`{"n":2}`)), ErrExists)

			got, err := s.Get(ctx, "user:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"n":1}`, string(got))

			require.NoError(t, s.Put(ctx, "user:a", []byte(`{"n":3}`)))
			got, err = s.Get(ctx, "user:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"n":3}`, string(got))

			ok, err := s.Exists(ctx, "user:a")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Delete(ctx, "user:a", "user:missing"))
			ok, err = s.Exists(ctx, "user:a")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_IndexPagination(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			var want []string
			for i := 0; i < 7; i++ {
				want = append(want, fmt.Sprintf("id-%d", i))
			}
			require.NoError(t, s.IndexAdd(ctx, "note", want[:4]...))
			require.NoError(t, s.IndexAdd(ctx, "note", want[4:]...))
			// re-adding keeps the original position
			require.NoError(t, s.IndexAdd(ctx, "note", "id-0"))

			n, err := s.IndexCount(ctx, "note")
			require.NoError(t, err)
			assert.Equal(t, 7, n)

			var got []string
			cursor := ""
			pages := 0
			for {
				p, err := s.IndexPage(ctx, "note", cursor, 3)
				require.NoError(t, err)
				got = append(got, p.IDs...)
				pages++
				if p.Next == "" {
					break
				}
				cursor = p.Next
			}
			assert.Equal(t, want, got)
			assert.Equal(t, 3, pages)
		})
	}
}

func TestStore_IndexRemoveKeepsCursorStable(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			require.NoError(t, s.IndexAdd(ctx, "c", "a", "b", "c", "d"))
			p, err := s.IndexPage(ctx, "c", "", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, p.IDs)

			require.NoError(t, s.IndexRemove(ctx, "c", "b", "c"))
			p, err = s.IndexPage(ctx, "c", p.Next, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"d"}, p.IDs)
			assert.Empty(t, p.Next)

			n, err := s.IndexCount(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestStore_InvalidCursor(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			_, err := mk(t).IndexPage(context.Background(), "x", "not-a-cursor", 5)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestStore_EmptyIndex(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			p, err := s.IndexPage(context.Background(), "nothing", "", 10)
			require.NoError(t, err)
			assert.Empty(t, p.IDs)
			assert.Empty(t, p.Next)
			n, err := s.IndexCount(context.Background(), "nothing")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
