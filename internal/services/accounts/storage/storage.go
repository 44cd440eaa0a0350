// Package storage defines persistence contracts for accounts.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested account is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates an account with the same email exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Account is one stored account.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Order names a supported list ordering.
type Order string

const (
	OrderEmail     Order = "email"
	OrderCreatedAt Order = "created_at"
)

// ListOptions selects one page of accounts.
type ListOptions struct {
	PageSize int
	Offset   int
	OrderBy  Order
}

// AccountPage is one page of accounts. NextOffset is zero on the last page.
type AccountPage struct {
	Accounts   []Account
	NextOffset int
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context, opts ListOptions) (AccountPage, error)
}
