package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

const (
	accountKeyPrefix = "account:"
	// tombstone marks a deleted account so a late fill cannot resurrect it.
	tombstone = "-"
)

// AccountCache stores JSON snapshots of accounts, or a tombstone for a
// deleted one.
// Key format: account:<id>
type AccountCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

var _ ports.AccountCache = (*AccountCache)(nil)

// NewAccountCache wraps client. A zero ttl keeps entries until invalidated.
func NewAccountCache(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *AccountCache {
	return &AccountCache{client: client, ttl: ttl, log: log}
}

// Get returns (nil, false) on a miss and on any read or decode failure.
func (c *AccountCache) Get(ctx context.Context, id int64) (*domain.Account, bool) {
	data, err := c.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Int64("account_id", id).Msg("account cache read failed")
		}
		return nil, false
	}
	if string(data) == tombstone {
		return nil, false
	}
	var a domain.Account
	if err := json.Unmarshal(data, &a); err != nil {
		c.log.Warn().Err(err).Int64("account_id", id).Msg("account cache entry unreadable")
		return nil, false
	}
	return &a, true
}

// Set is logged rather than returned on failure; a missed cache write only
// costs a later store read.
func (c *AccountCache) Set(ctx context.Context, account *domain.Account) {
	data, ok := c.encode(account)
	if !ok {
		return
	}
	if err := c.client.Set(ctx, accountKey(account.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("account_id", account.ID).Msg("account cache write failed")
	}
}

// Add writes with SETNX, so it never replaces a newer entry or a tombstone.
func (c *AccountCache) Add(ctx context.Context, account *domain.Account) {
	data, ok := c.encode(account)
	if !ok {
		return
	}
	if err := c.client.SetNX(ctx, accountKey(account.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("account_id", account.ID).Msg("account cache fill failed")
	}
}

func (c *AccountCache) Delete(ctx context.Context, id int64) {
	if err := c.client.Set(ctx, accountKey(id), tombstone, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("account_id", id).Msg("account cache delete failed")
	}
}

func (c *AccountCache) encode(account *domain.Account) ([]byte, bool) {
	data, err := json.Marshal(account)
	if err != nil {
		c.log.Warn().Err(err).Int64("account_id", account.ID).Msg("account cache marshal failed")
		return nil, false
	}
	return data, true
}

func accountKey(id int64) string {
	return accountKeyPrefix + strconv.FormatInt(id, 10)
}
