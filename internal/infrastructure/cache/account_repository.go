// Package cache decorates the account store with a read-through cache for
// lookups by ID.
package cache

import (
	"context"

	"github.com/rednet/account-service/internal/api/metrics"
	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// AccountRepository serves FindByID from the cache when it can. A miss reads
// the store and fills the cache only if the key is still empty; successful
// writes go through to the cache and deletes leave a tombstone, so a fill
// carrying a row read before the write is refused. Every other method,
// including all the lookups used for uniqueness checks, goes straight to the
// store.
type AccountRepository struct {
	ports.AccountRepository
	cache ports.AccountCache
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(store ports.AccountRepository, cache ports.AccountCache) *AccountRepository {
	return &AccountRepository{AccountRepository: store, cache: cache}
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	if account, ok := r.cache.Get(ctx, id); ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return account, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	account, err := r.AccountRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(ctx, account)
	return account, nil
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	saved, err := r.AccountRepository.Save(ctx, account)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, saved)
	return saved, nil
}

func (r *AccountRepository) Delete(ctx context.Context, account *domain.Account) error {
	if err := r.AccountRepository.Delete(ctx, account); err != nil {
		return err
	}
	r.cache.Delete(ctx, account.ID)
	return nil
}
