package ports

import (
	"context"

	"github.com/rednet/account-service/internal/core/domain"
)

// AccountCreation is the DTO passed from the transport layer to create an account.
type AccountCreation struct {
	Username   string
	Email      string
	Password   string
	SecretWord string
	Roles      []string
}

// AccountUpdate carries the full replacement state of an existing account.
type AccountUpdate struct {
	ID         int64
	Username   string
	Email      string
	Password   string
	SecretWord string
	Roles      []string
}

// AccountService defines the account directory use cases.
type AccountService interface {
	CreateAccount(ctx context.Context, in AccountCreation) (*domain.Account, error)
	UpdateAccount(ctx context.Context, in AccountUpdate) error

	GetAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetAccountByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error)

	ExistsAccountByUsername(ctx context.Context, username string) (bool, error)
	ExistsAccountByEmail(ctx context.Context, email string) (bool, error)

	DeleteAccountByID(ctx context.Context, id int64) error

	GetUniqueFieldsOccupancy(ctx context.Context, username, email string) (domain.AccountUniqueFieldsOccupancy, error)
}
