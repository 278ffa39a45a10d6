// Package sqlite implements the account store over an embedded SQLite
// database. It is the single-node alternative to the MongoDB store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
	"github.com/rednet/account-service/internal/infrastructure/db/sqlite/migrations"
)

const defaultTimeout = 5 * time.Second

// Store implements ports.AccountRepository and ports.RoleRepository.
type Store struct {
	db *sql.DB
}

var (
	_ ports.AccountRepository = (*Store)(nil)
	_ ports.RoleRepository    = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the
// bundled schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return fmt.Errorf("sqlite migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		ddl, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

const selectAccount = `SELECT account_id, username, email, password, secret_word FROM accounts `

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return s.findOne(ctx, selectAccount+`WHERE account_id = ?`, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.findOne(ctx, selectAccount+`WHERE username = ?`, username)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findOne(ctx, selectAccount+`WHERE email = ?`, email)
}

func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error) {
	return s.findOne(ctx, selectAccount+`WHERE username = ? OR email = ? ORDER BY account_id LIMIT 1`, username, email)
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Account
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Username, &a.Email, &a.Password, &a.SecretWord)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	roles, err := s.loadRoles(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Roles = roles
	return &a, nil
}

func (s *Store) loadRoles(ctx context.Context, accountID int64) ([]domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role_id FROM accounts_to_roles WHERE account_id = ? ORDER BY role_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return domain.NewRoleSet(ids), nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)`, username)
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = ?)`, email)
}

func (s *Store) exists(ctx context.Context, query string, arg string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var found bool
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("exists account: %w", err)
	}
	return found, nil
}

func (s *Store) FindAllUniqueFieldsByUsernameOrEmail(ctx context.Context, username, email string) ([]ports.AccountUniqueFieldsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, username, email FROM accounts WHERE username = ? OR email = ? ORDER BY account_id`,
		username, email)
	if err != nil {
		return nil, fmt.Errorf("find unique fields: %w", err)
	}
	defer rows.Close()

	var records []ports.AccountUniqueFieldsRecord
	for rows.Next() {
		var rec ports.AccountUniqueFieldsRecord
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Email); err != nil {
			return nil, fmt.Errorf("scan unique fields: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find unique fields: %w", err)
	}
	return records, nil
}

// Save writes the account row and replaces its role associations in one
// transaction. Unknown role identifiers are registered on the way.
func (s *Store) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save account: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved := *account
	if saved.ID == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (username, email, password, secret_word) VALUES (?, ?, ?, ?)`,
			saved.Username, saved.Email, saved.Password, saved.SecretWord)
		if err != nil {
			return nil, translateWriteError(err, account, "insert account")
		}
		if saved.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert account: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
INSERT INTO accounts (account_id, username, email, password, secret_word) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (account_id) DO UPDATE SET
    username = excluded.username,
    email = excluded.email,
    password = excluded.password,
    secret_word = excluded.secret_word`,
			saved.ID, saved.Username, saved.Email, saved.Password, saved.SecretWord)
		if err != nil {
			return nil, translateWriteError(err, account, "update account")
		}
	}

	if err := replaceRoles(ctx, tx, saved.ID, account.RoleIDs()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save account: commit: %w", err)
	}

	saved.Roles = domain.NewRoleSet(account.RoleIDs())
	return &saved, nil
}

func replaceRoles(ctx context.Context, tx *sql.Tx, accountID int64, roleIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts_to_roles WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("clear account roles: %w", err)
	}
	for _, id := range roleIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO roles (role_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("register role %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO accounts_to_roles (account_id, role_id) VALUES (?, ?)`, accountID, id); err != nil {
			return fmt.Errorf("link role %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes the account; its role links go with it.
func (s *Store) Delete(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, account.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// EnsureRoles registers every identifier not already present.
func (s *Store) EnsureRoles(ctx context.Context, ids []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO roles (role_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("ensure role %s: %w", id, err)
		}
	}
	return nil
}

// translateWriteError maps a unique-constraint failure on username or email to
// domain.OccupiedValueError.
func translateWriteError(err error, account *domain.Account, op string) error {
	if isUniqueViolation(err) {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "accounts.username"):
			return domain.NewOccupiedValueError(domain.FieldUsername, account.Username)
		case strings.Contains(msg, "accounts.email"):
			return domain.NewOccupiedValueError(domain.FieldEmail, account.Email)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
