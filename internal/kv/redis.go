package kv

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as plain string keys and every index as a sorted
// set. Members are scored with a per-index sequence taken from INCRBY, so
// the score doubles as the page cursor and survives removals of earlier
// members.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an already connected client. All keys written by the
// store are namespaced with prefix (e.g. "mess:").
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }
func (s *RedisStore) idxKey(i string) string { return s.prefix + "idx:" + i }
func (s *RedisStore) seqKey(i string) string { return s.prefix + "idxseq:" + i }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create relies on SETNX for atomicity.
func (s *RedisStore) Create(ctx context.Context, key string, value []byte) error {
	ok, err := s.rdb.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// IndexAdd reserves len(ids) sequence numbers in one round trip and adds the
// members with ZADD NX so existing members keep their score.
func (s *RedisStore) IndexAdd(ctx context.Context, index string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	end, err := s.rdb.IncrBy(ctx, s.seqKey(index), int64(len(ids))).Result()
	if err != nil {
		return err
	}
	start := end - int64(len(ids)) + 1
	members := make([]redis.Z, len(ids))
	for i, id := range ids {
		members[i] = redis.Z{Score: float64(start + int64(i)), Member: id}
	}
	return s.rdb.ZAddNX(ctx, s.idxKey(index), members...).Err()
}

func (s *RedisStore) IndexRemove(ctx context.Context, index string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return s.rdb.ZRem(ctx, s.idxKey(index), members...).Err()
}

func (s *RedisStore) IndexPage(ctx context.Context, index, cursor string, limit int) (Page, error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	if limit < 1 {
		limit = 1
	}
	lo := "-inf"
	if cursor != "" {
		lo = "(" + strconv.FormatInt(after, 10)
	}
	zs, err := s.rdb.ZRangeByScoreWithScores(ctx, s.idxKey(index), &redis.ZRangeBy{
		Min:   lo,
		Max:   "+inf",
		Count: int64(limit + 1),
	}).Result()
	if err != nil {
		return Page{}, err
	}
	var page Page
	for i, z := range zs {
		if i == limit {
			page.Next = formatCursor(int64(zs[i-1].Score))
			break
		}
		member, _ := z.Member.(string)
		page.IDs = append(page.IDs, member)
	}
	return page, nil
}

func (s *RedisStore) IndexCount(ctx context.Context, index string) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.idxKey(index)).Result()
	return int(n), err
}
