package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/identity"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// Procedure names.
const (
	ProcedureCreate = "accounts.create"
	ProcedureGet    = "accounts.get"
	ProcedureList   = "accounts.list"
	ProcedureMe     = "accounts.me"
	ProcedureSignIn = "accounts.signin"
)

// DefaultSessionTTL is the lifetime of sessions issued by accounts.signin.
const DefaultSessionTTL = 24 * time.Hour

// SessionIssuer issues session tokens for signed in accounts.
type SessionIssuer interface {
	Issue(user identity.User, ttl time.Duration) (string, identity.Session, error)
}

// CreateInput is the input of accounts.create.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=64"`
	Password string `json:"password" validate:"required,password"`
}

// GetInput is the input of accounts.get.
type GetInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

// ListInput is the input of accounts.list.
type ListInput struct {
	PageSize  int    `json:"page_size" validate:"gte=0"`
	PageToken string `json:"page_token"`
	OrderBy   string `json:"order_by" validate:"omitempty,oneof=email created_at"`
}

// ListOutput is the output of accounts.list.
type ListOutput struct {
	Accounts      []Account `json:"accounts" validate:"dive"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// SignInInput is the input of accounts.signin.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInOutput is the output of accounts.signin.
type SignInOutput struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	Account   Account `json:"account"`
}

// Procedures returns the account procedures. Sessions issues the tokens of
// accounts.signin with lifetime ttl.
func Procedures(sessions SessionIssuer, ttl time.Duration) map[string]rpc.Procedure {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return map[string]rpc.Procedure{
		ProcedureCreate: rpc.Public(create, rpc.WithSummary("Create an account")),
		ProcedureGet:    rpc.Authed(get, rpc.WithSummary("Get an account by ID")),
		ProcedureList:   rpc.Authed(list, rpc.WithSummary("List accounts"), rpc.WithOutputSchema()),
		ProcedureMe:     rpc.Authed(me, rpc.WithSummary("Get the signed in account")),
		ProcedureSignIn: rpc.Public(signIn(sessions, ttl), rpc.WithSummary("Sign in with email and password")),
	}
}

func serviceFrom(pc rpc.Context) (*Service, error) {
	repos, ok := pc.Repositories().(*Repositories)
	if !ok || repos == nil || repos.Accounts == nil {
		return nil, fmt.Errorf("account repositories are not configured")
	}
	return NewService(repos.Accounts), nil
}

func create(ctx context.Context, pc rpc.Context, in CreateInput) (Account, error) {
	svc, err := serviceFrom(pc)
	if err != nil {
		return Account{}, err
	}
	return svc.Create(ctx, pc.Translator(), NewAccount{Email: in.Email, Name: in.Name, Password: in.Password})
}

func get(ctx context.Context, pc rpc.Context, in GetInput) (Account, error) {
	svc, err := serviceFrom(pc)
	if err != nil {
		return Account{}, err
	}
	return svc.Get(ctx, pc.Translator(), in.ID)
}

func list(ctx context.Context, pc rpc.Context, in ListInput) (ListOutput, error) {
	svc, err := serviceFrom(pc)
	if err != nil {
		return ListOutput{}, err
	}
	page, err := svc.List(ctx, in.PageSize, in.PageToken, in.OrderBy)
	if errors.Is(err, ErrInvalidPageToken) {
		return ListOutput{}, invalidPageToken(pc.Translator(), err)
	}
	if err != nil {
		return ListOutput{}, err
	}
	return ListOutput{Accounts: page.Accounts, NextPageToken: page.NextPageToken}, nil
}

func invalidPageToken(tr i18n.Translator, err error) error {
	issues := &response.Issues{}
	issues.AddNested("page_token", tr.Sprintf(i18n.KeyInvalidValue))
	failure := validation.NewError(validation.StageInput, "", issues)
	failure.Cause = err
	return failure
}

func me(ctx context.Context, pc rpc.Context, _ struct{}) (Account, error) {
	svc, err := serviceFrom(pc)
	if err != nil {
		return Account{}, err
	}
	user := pc.User()
	if user == nil {
		return Account{}, apperrors.New(apperrors.CodeUnauthorized, i18n.UnauthenticatedError(pc.Translator()))
	}
	return svc.Get(ctx, pc.Translator(), user.ID)
}

func signIn(sessions SessionIssuer, ttl time.Duration) rpc.HandlerFunc[SignInInput, SignInOutput] {
	return func(ctx context.Context, pc rpc.Context, in SignInInput) (SignInOutput, error) {
		svc, err := serviceFrom(pc)
		if err != nil {
			return SignInOutput{}, err
		}
		if sessions == nil {
			return SignInOutput{}, fmt.Errorf("session issuer is not configured")
		}
		account, err := svc.Authenticate(ctx, in.Email, in.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return SignInOutput{}, apperrors.New(apperrors.CodeUnauthorized, pc.Translator().Sprintf(KeyInvalidCredentials))
		}
		if err != nil {
			return SignInOutput{}, err
		}
		token, session, err := sessions.Issue(identity.User{ID: account.ID, Email: account.Email, Name: account.Name}, ttl)
		if err != nil {
			return SignInOutput{}, fmt.Errorf("issue session: %w", err)
		}
		return SignInOutput{
			Token:     token,
			ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
			Account:   account,
		}, nil
	}
}
