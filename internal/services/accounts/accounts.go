// Package accounts is the account business domain: the service that lifts
// storage failures into domain errors, the procedures exposing it and the
// form actions built on top of them.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/pagination"
	"github.com/louisbranch/formrpc/internal/services/accounts/storage"
)

// Message keys of the accounts catalog.
const (
	KeyAlreadyExists      = "accounts.already_exists"
	KeyNotFound           = "accounts.not_found"
	KeyCreated            = "accounts.created"
	KeyFound              = "accounts.found"
	KeyInvalidCredentials = "accounts.invalid_credentials"
	KeySignedIn           = "accounts.signed_in"
)

var (
	pageSizeConfig = pagination.PageSizeConfig{Default: 20, Max: 100}
	orderByConfig  = pagination.OrderByConfig{
		Default: string(storage.OrderEmail),
		Allowed: []string{string(storage.OrderEmail), string(storage.OrderCreatedAt)},
	}
)

var (
	// ErrInvalidCredentials reports an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPageToken reports a page token no previous page produced.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Repositories is the storage handle procedures receive through their
// context.
type Repositories struct {
	Accounts storage.AccountStore
}

// Account is the public view of a stored account.
type Account struct {
	ID        string `json:"id" validate:"required,uuid"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" validate:"required,iso_datetime"`
}

func accountFromStorage(record storage.Account) Account {
	return Account{
		ID:        record.ID,
		Email:     record.Email,
		Name:      record.Name,
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewAccount holds the fields of an account to create.
type NewAccount struct {
	Email    string
	Name     string
	Password string
}

// Page is one page of accounts.
type Page struct {
	Accounts      []Account
	NextPageToken string
}

// Service implements account operations over an AccountStore.
type Service struct {
	store    storage.AccountStore
	now      func() time.Time
	newID    func() string
	hashCost int
}

// NewService returns a service backed by store.
func NewService(store storage.AccountStore) *Service {
	return &Service{
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		hashCost: bcrypt.DefaultCost,
	}
}

// Create stores a new account. A duplicate email is an AlreadyExists error
// rendered by l.
func (s *Service) Create(ctx context.Context, l i18n.Localizer, input NewAccount) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	record := storage.Account{
		ID:           s.newID(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		// The store keeps millisecond precision.
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.CreateAccount(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return Account{}, apperrors.AlreadyExists(l.Sprintf(KeyAlreadyExists, record.Email))
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return accountFromStorage(record), nil
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, l i18n.Localizer, id string) (Account, error) {
	record, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return Account{}, lift(l, id, err)
	}
	return accountFromStorage(record), nil
}

// GetByEmail returns the account registered with email.
func (s *Service) GetByEmail(ctx context.Context, l i18n.Localizer, email string) (Account, error) {
	record, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return Account{}, lift(l, email, err)
	}
	return accountFromStorage(record), nil
}

// List returns one page of accounts. pageToken must come from a previous
// page; orderBy must be one of the allowed orderings.
func (s *Service) List(ctx context.Context, pageSize int, pageToken, orderBy string) (Page, error) {
	offset, err := pagination.ParseOffsetToken(pageToken)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	order, err := pagination.NormalizeOrderBy(orderBy, orderByConfig)
	if err != nil {
		return Page{}, err
	}
	records, err := s.store.ListAccounts(ctx, storage.ListOptions{
		PageSize: pagination.ClampPageSize(pageSize, pageSizeConfig),
		Offset:   offset,
		OrderBy:  storage.Order(order),
	})
	if err != nil {
		return Page{}, fmt.Errorf("list accounts: %w", err)
	}
	page := Page{
		Accounts:      make([]Account, 0, len(records.Accounts)),
		NextPageToken: pagination.OffsetToken(records.NextOffset),
	}
	for _, record := range records.Accounts {
		page.Accounts = append(page.Accounts, accountFromStorage(record))
	}
	return page, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	record, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(record.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return accountFromStorage(record), nil
}

func lift(l i18n.Localizer, key string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound(l.Sprintf(KeyNotFound, key))
	}
	return fmt.Errorf("get account: %w", err)
}
