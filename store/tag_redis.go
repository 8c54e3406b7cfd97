package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/curakit/core"
)

// RedisTagStore 是 Redis 实现的 TagStore。
//
// 存储结构：
//   - {prefix}tag:{scope}\x00{name}          → msgpack 编码的 tag 记录（成员有序）
//   - {prefix}tag:{scope}\x00{name}:members  → 成员 Set，供其他服务按成员查询
//   - {prefix}tags:{scope}                   → scope 下的 tag 名 Set
//
// CreateTag 使用 WATCH + MULTI/EXEC：三处写入要么全部生效，要么全部不生效。
// WATCH 期间 key 被并发写入时事务失败，按“tag 已存在”处理。
type RedisTagStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisTagStore 创建 RedisTagStore；prefix 为空时使用 "curakit:"。
func NewRedisTagStore(client redis.UniversalClient, prefix string) *RedisTagStore {
	if prefix == "" {
		prefix = "curakit:"
	}
	return &RedisTagStore{client: client, prefix: prefix}
}

func (r *RedisTagStore) Name() string { return "redis" }

func (r *RedisTagStore) key(scope, name string) string {
	return tagKey(r.prefix+"tag:", scope, name)
}

func (r *RedisTagStore) TagExists(ctx context.Context, scope, name string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(scope, name)).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists tag")
	}
	return n > 0, nil
}

func (r *RedisTagStore) CreateTag(ctx context.Context, tag *core.Tag) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	data, err := encodeTag(tag)
	if err != nil {
		return errors.Wrap(err, "encode tag")
	}

	key := r.key(tag.Scope, tag.Name)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrTagExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if len(tag.SampleIDs) > 0 {
				members := make([]any, len(tag.SampleIDs))
				for i, id := range tag.SampleIDs {
					members[i] = id
				}
				pipe.SAdd(ctx, key+":members", members...)
			}
			pipe.SAdd(ctx, r.prefix+"tags:"+tag.Scope, tag.Name)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrTagExists), errors.Is(err, redis.TxFailedErr):
		return core.ErrTagExists
	default:
		return errors.Wrapf(err, "redis create tag %s/%s", tag.Scope, tag.Name)
	}
}

func (r *RedisTagStore) GetTag(ctx context.Context, scope, name string) (*core.Tag, error) {
	data, err := r.client.Get(ctx, r.key(scope, name)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrTagNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get tag")
	}
	tag, err := decodeTag(data)
	return tag, errors.Wrap(err, "decode tag")
}

func (r *RedisTagStore) Close() error {
	return r.client.Close()
}

var _ core.TagStore = (*RedisTagStore)(nil)
