/*
Package redisstore provides a tree.Store backed by a redis DB. Trees are
kept serialized under the key prefix:id.
*/
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	redis "gopkg.in/redis.v5"
)

type redisStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	encdec tree.EncodeDecoder
}

/*
New builds a tree.Store backed by a redis DB. Trees are encoded with the
given tree.EncodeDecoder and expire after the given ttl, unless it is zero.
*/
func New(rc *redis.Client, prefix string, ttl time.Duration, encdec tree.EncodeDecoder) tree.Store {
	return &redisStore{rc: rc, prefix: prefix, ttl: ttl, encdec: encdec}
}

func (rs *redisStore) Create(ctx context.Context, t *tree.Tree) error {
	var ok bool
	for !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.ID = tree.NewID()
		data, err := rs.encdec.Encode(t)
		if err != nil {
			return fmt.Errorf("creating tree: encoding tree: %v", err)
		}
		ok, err = rs.rc.SetNX(rs.keyFor(t.ID), data, rs.ttl).Result()
		if err != nil {
			return fmt.Errorf("creating tree in redis: %v", err)
		}
	}
	return nil
}

func (rs *redisStore) Get(ctx context.Context, id string) (*tree.Tree, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	data, err := rs.rc.Get(rs.keyFor(id)).Bytes()
	if err == redis.Nil {
		return nil, tree.ErrTreeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: %v", id, err)
	}
	t, err := rs.encdec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: decoding: %w", id, err)
	}
	t.ID = id
	return t, nil
}

func (rs *redisStore) Store(ctx context.Context, t *tree.Tree) error {
	if t.ID == "" {
		return fmt.Errorf("storing tree: tree has no ID")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	key := rs.keyFor(t.ID)
	data, err := rs.encdec.Encode(t)
	if err != nil {
		return fmt.Errorf("storing tree %q: encoding tree: %v", key, err)
	}
	if err = rs.rc.Set(key, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("storing tree %q in redis: %v", key, err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	key := rs.keyFor(id)
	if err := rs.rc.Del(key).Err(); err != nil {
		return fmt.Errorf("deleting tree %q from redis: %v", key, err)
	}
	return nil
}

// Close closes the underlying redis client.
func (rs *redisStore) Close(ctx context.Context) error {
	return rs.rc.Close()
}

func (rs *redisStore) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
