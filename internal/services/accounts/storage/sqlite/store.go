// Package sqlite provides a SQLite-backed account storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/formrpc/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/formrpc/internal/services/accounts/storage"
	"github.com/louisbranch/formrpc/internal/services/accounts/storage/sqlite/migrations"
)

// Store persists accounts in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite account store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateAccount inserts one account.
func (s *Store) CreateAccount(ctx context.Context, account storage.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(account.ID)
	email := strings.TrimSpace(account.Email)
	if id == "" {
		return fmt.Errorf("account id is required")
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(account.PasswordHash) == 0 {
		return fmt.Errorf("password hash is required")
	}
	createdAt := account.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		email,
		strings.TrimSpace(account.Name),
		account.PasswordHash,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount returns one account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (storage.Account, error) {
	return s.getOne(ctx, "id", strings.TrimSpace(id))
}

// GetAccountByEmail returns one account by email, ignoring case.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (storage.Account, error) {
	return s.getOne(ctx, "email", strings.TrimSpace(email))
}

func (s *Store) getOne(ctx context.Context, column, value string) (storage.Account, error) {
	if err := ctx.Err(); err != nil {
		return storage.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Account{}, fmt.Errorf("storage is not configured")
	}
	if value == "" {
		return storage.Account{}, fmt.Errorf("account %s is required", column)
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, email, name, password_hash, created_at FROM accounts WHERE `+column+` = ?`,
		value,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns one page of accounts.
func (s *Store) ListAccounts(ctx context.Context, opts storage.ListOptions) (storage.AccountPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.AccountPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AccountPage{}, fmt.Errorf("storage is not configured")
	}
	if opts.PageSize <= 0 {
		return storage.AccountPage{}, fmt.Errorf("page size must be greater than zero")
	}
	if opts.Offset < 0 {
		return storage.AccountPage{}, fmt.Errorf("offset must not be negative")
	}

	orderBy := "email ASC, id ASC"
	switch opts.OrderBy {
	case storage.OrderEmail, "":
	case storage.OrderCreatedAt:
		orderBy = "created_at ASC, id ASC"
	default:
		return storage.AccountPage{}, fmt.Errorf("unsupported order %q", opts.OrderBy)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, email, name, password_hash, created_at
		   FROM accounts
		  ORDER BY `+orderBy+`
		  LIMIT ? OFFSET ?`,
		opts.PageSize+1,
		opts.Offset,
	)
	if err != nil {
		return storage.AccountPage{}, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	page := storage.AccountPage{Accounts: make([]storage.Account, 0, opts.PageSize)}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return storage.AccountPage{}, fmt.Errorf("list accounts: %w", err)
		}
		page.Accounts = append(page.Accounts, account)
	}
	if err := rows.Err(); err != nil {
		return storage.AccountPage{}, fmt.Errorf("list accounts: %w", err)
	}
	if len(page.Accounts) > opts.PageSize {
		page.Accounts = page.Accounts[:opts.PageSize]
		page.NextOffset = opts.Offset + opts.PageSize
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (storage.Account, error) {
	var (
		account   storage.Account
		createdAt int64
	)
	if err := row.Scan(&account.ID, &account.Email, &account.Name, &account.PasswordHash, &createdAt); err != nil {
		return storage.Account{}, err
	}
	account.CreatedAt = fromMillis(createdAt)
	return account, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}

var _ storage.AccountStore = (*Store)(nil)
