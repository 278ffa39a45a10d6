package ports

import (
	"context"

	"github.com/rednet/account-service/internal/core/domain"
)

// AccountCache is a best-effort cache of accounts keyed by ID. A miss or a
// broken backend reads as (nil, false); writes never fail the caller.
type AccountCache interface {
	Get(ctx context.Context, id int64) (*domain.Account, bool)
	// Set stores account, replacing whatever the key holds.
	Set(ctx context.Context, account *domain.Account)
	// Add stores account only when the key holds nothing, not even a
	// tombstone. A fill racing a write or delete can therefore never replace
	// the newer state.
	Add(ctx context.Context, account *domain.Account)
	// Delete replaces the entry with a tombstone that reads as a miss.
	Delete(ctx context.Context, id int64)
}
