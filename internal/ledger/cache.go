package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ActionCache keeps action headers in Redis. Headers never change after
// insert, so entries only expire by TTL.
type ActionCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewActionCache instantiates the cache helper.
func NewActionCache(client *redis.Client, ttl time.Duration) *ActionCache {
	return &ActionCache{client: client, ttl: ttl}
}

// Fetch returns the cached header or loads it once per key across
// concurrent callers.
func (c *ActionCache) Fetch(ctx context.Context, id int64, loader func(context.Context, int64) (Action, error)) (Action, error) {
	if loader == nil {
		return Action{}, errors.New("ledger: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx, id)
	}
	key := actionKey(id)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var a Action
		if err := json.Unmarshal(payload, &a); err == nil {
			return a, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Action{}, err
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		a, err := loader(ctx, id)
		if err != nil {
			return Action{}, err
		}
		if err := c.Store(ctx, a); err != nil {
			return Action{}, err
		}
		return a, nil
	})
	select {
	case <-ctx.Done():
		return Action{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Action{}, res.Err
		}
		return res.Val.(Action), nil
	}
}

// Store writes the header under its id.
func (c *ActionCache) Store(ctx context.Context, a Action) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, actionKey(a.ID), raw, c.ttl).Err()
}

func actionKey(id int64) string {
	return "ledger:action:" + strconv.FormatInt(id, 10)
}
