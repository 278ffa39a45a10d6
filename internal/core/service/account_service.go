package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// AccountService is the account directory. It owns every uniqueness decision
// for username and email; the repository only stores and looks up.
type AccountService struct {
	repo   ports.AccountRepository
	events ports.AccountEventPublisher
	log    zerolog.Logger
}

// NewAccountService returns an AccountService. events may be nil, in which
// case no account events are emitted.
func NewAccountService(repo ports.AccountRepository, events ports.AccountEventPublisher, log zerolog.Logger) *AccountService {
	if events == nil {
		events = noopPublisher{}
	}
	return &AccountService{repo: repo, events: events, log: log}
}

// CreateAccount stores a new account after checking that neither its username
// nor its email is held by another account. The store assigns the ID.
func (s *AccountService) CreateAccount(ctx context.Context, in ports.AccountCreation) (*domain.Account, error) {
	roles := domain.NewRoleSet(in.Roles)
	if err := validateFields(in.Username, in.Email, in.Password, in.SecretWord, roles); err != nil {
		return nil, err
	}

	occupancy, err := s.uniqueFieldsOccupancy(ctx, in.Username, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if occupancy.AnyOccupied() {
		s.log.Debug().Str("username", in.Username).Str("email", in.Email).Msg("create rejected: occupied values")
		return nil, &domain.OccupiedValueError{OccupiedFields: occupancy.OccupiedFields()}
	}

	saved, err := s.repo.Save(ctx, &domain.Account{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.Password,
		SecretWord: in.SecretWord,
		Roles:      roles,
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Int64("account_id", saved.ID).Str("username", saved.Username).Msg("account created")
	s.publish(domain.EventAccountCreated, saved)
	return saved, nil
}

// UpdateAccount replaces the mutable fields of an existing account. Only the
// unique fields that actually change are checked against the store.
func (s *AccountService) UpdateAccount(ctx context.Context, in ports.AccountUpdate) error {
	roles := domain.NewRoleSet(in.Roles)
	if err := validateFields(in.Username, in.Email, in.Password, in.SecretWord, roles); err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return notFoundOr(err, "update account", domain.FieldID, strconv.FormatInt(in.ID, 10))
	}

	if err := s.checkUniqueFieldsChange(ctx, existing, in); err != nil {
		return err
	}

	existing.Username = in.Username
	existing.Email = in.Email
	existing.Password = in.Password
	existing.SecretWord = in.SecretWord
	existing.Roles = roles

	saved, err := s.repo.Save(ctx, existing)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	s.log.Info().Int64("account_id", saved.ID).Msg("account updated")
	s.publish(domain.EventAccountUpdated, saved)
	return nil
}

// checkUniqueFieldsChange classifies the update by which unique fields change
// and runs exactly the lookup that case needs, never more than one.
func (s *AccountService) checkUniqueFieldsChange(ctx context.Context, existing *domain.Account, in ports.AccountUpdate) error {
	usernameChanged := in.Username != existing.Username
	emailChanged := in.Email != existing.Email

	switch {
	case !usernameChanged && !emailChanged:
		return nil

	case usernameChanged && !emailChanged:
		taken, err := s.repo.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if taken {
			return domain.NewOccupiedValueError(domain.FieldUsername, in.Username)
		}
		return nil

	case !usernameChanged && emailChanged:
		taken, err := s.repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if taken {
			return domain.NewOccupiedValueError(domain.FieldEmail, in.Email)
		}
		return nil

	default:
		occupancy, err := s.uniqueFieldsOccupancy(ctx, in.Username, in.Email, existing.ID)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if occupancy.AnyOccupied() {
			return &domain.OccupiedValueError{OccupiedFields: occupancy.OccupiedFields()}
		}
		return nil
	}
}

// GetUniqueFieldsOccupancy reports whether username or email is held by any account.
func (s *AccountService) GetUniqueFieldsOccupancy(ctx context.Context, username, email string) (domain.AccountUniqueFieldsOccupancy, error) {
	occupancy, err := s.uniqueFieldsOccupancy(ctx, username, email, 0)
	if err != nil {
		return domain.AccountUniqueFieldsOccupancy{}, fmt.Errorf("unique fields occupancy: %w", err)
	}
	return occupancy, nil
}

// uniqueFieldsOccupancy runs the batched lookup for the pair. Records with ID
// excludeID are skipped; pass 0 to count every record.
func (s *AccountService) uniqueFieldsOccupancy(ctx context.Context, username, email string, excludeID int64) (domain.AccountUniqueFieldsOccupancy, error) {
	occupancy := domain.AccountUniqueFieldsOccupancy{Username: username, Email: email}

	records, err := s.repo.FindAllUniqueFieldsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return occupancy, err
	}

	for _, rec := range records {
		if excludeID != 0 && rec.ID == excludeID {
			continue
		}
		if rec.Username == username {
			occupancy.UsernameOccupied = true
		}
		if rec.Email == email {
			occupancy.EmailOccupied = true
		}
		if occupancy.UsernameOccupied && occupancy.EmailOccupied {
			break
		}
	}
	return occupancy, nil
}

func (s *AccountService) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get account", domain.FieldID, strconv.FormatInt(id, 10))
	}
	return account, nil
}

func (s *AccountService) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, "get account", domain.FieldUsername, username)
	}
	return account, nil
}

func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "get account", domain.FieldEmail, email)
	}
	return account, nil
}

func (s *AccountService) GetAccountByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error) {
	account, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, notFoundOr(err, "get account", domain.FieldUsername, username, domain.FieldEmail, email)
	}
	return account, nil
}

func (s *AccountService) ExistsAccountByUsername(ctx context.Context, username string) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *AccountService) ExistsAccountByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

// DeleteAccountByID removes the account with the given ID. The store's delete
// is never called when no such account exists.
func (s *AccountService) DeleteAccountByID(ctx context.Context, id int64) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "delete account", domain.FieldID, strconv.FormatInt(id, 10))
	}

	if err := s.repo.Delete(ctx, account); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.log.Info().Int64("account_id", id).Msg("account deleted")
	s.publish(domain.EventAccountDeleted, account)
	return nil
}

func (s *AccountService) publish(eventType domain.AccountEventType, account *domain.Account) {
	s.events.Publish(domain.AccountEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  account.ID,
		Username:   account.Username,
		Email:      account.Email,
		Roles:      account.RoleIDs(),
		OccurredAt: time.Now().UTC(),
	})
}

// notFoundOr attaches the search keys to a not-found error from the store and
// wraps anything else with op.
func notFoundOr(err error, op string, searchFields ...string) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.NewAccountNotFoundError(searchFields...)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validateFields(username, email, password, secretWord string, roles []domain.Role) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", domain.ErrInvalidAccount)
	case email == "":
		return fmt.Errorf("%w: email is required", domain.ErrInvalidAccount)
	case password == "":
		return fmt.Errorf("%w: password is required", domain.ErrInvalidAccount)
	case secretWord == "":
		return fmt.Errorf("%w: secret word is required", domain.ErrInvalidAccount)
	case len(roles) == 0:
		return fmt.Errorf("%w: at least one role is required", domain.ErrInvalidAccount)
	}
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.AccountEvent) {}
