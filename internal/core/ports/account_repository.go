package ports

import (
	"context"

	"github.com/rednet/account-service/internal/core/domain"
)

// AccountRepository is the account store. Lookups return domain.ErrAccountNotFound
// when nothing matches. The store keeps username and email unique at the
// storage level and reports a violation as domain.ErrOccupiedValue, but it
// makes no uniqueness decisions of its own.
type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FindByUsernameOrEmail returns the first account holding either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// FindAllUniqueFieldsByUsernameOrEmail returns the id, username and email of
	// every account holding either value, in a single round trip.
	FindAllUniqueFieldsByUsernameOrEmail(ctx context.Context, username, email string) ([]AccountUniqueFieldsRecord, error)

	// Save inserts the account when its ID is zero (assigning a new ID) and
	// replaces the stored record otherwise.
	Save(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Delete(ctx context.Context, account *domain.Account) error
}

// AccountUniqueFieldsRecord pairs the unique fields of a stored account with
// its ID so callers can tell a record apart from the one being updated.
type AccountUniqueFieldsRecord struct {
	ID int64
	domain.AccountUniqueFields
}

// RoleRepository manages the registry of known role identifiers.
type RoleRepository interface {
	// EnsureRoles inserts every identifier that is not registered yet.
	EnsureRoles(ctx context.Context, ids []string) error
}
