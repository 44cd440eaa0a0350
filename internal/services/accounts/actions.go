package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/platform/safeaction"
	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// Action routes.
const (
	ActionSignupPath = "/accounts/signup"
	ActionLookupPath = "/accounts/lookup"
)

// errNoProcedureClient reports a request served without the procedure
// client middleware.
var errNoProcedureClient = errors.New("procedure client is not configured")

// SignupForm is the signup form. Redirect, when set, must be a local path.
type SignupForm struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=64"`
	Password string `json:"password" validate:"required,password"`
	Redirect string `json:"redirect" validate:"omitempty,local_path"`
}

// LookupForm is the account lookup form.
type LookupForm struct {
	Email string `json:"email" validate:"required,email"`
}

// Actions holds the account form actions.
type Actions struct {
	Signup *safeaction.SafeAction[response.Response[Account]]
	Lookup *safeaction.SafeAction[response.Response[Account]]
}

// NewActions builds the account actions. Signup creates the account through
// the request's procedure client; lookup reads repos directly.
func NewActions(repos *Repositories, reporter *apperrors.Reporter) Actions {
	return Actions{
		Signup: safeaction.Wrap("accounts.signup", signup, safeaction.WithReporter(reporter)),
		Lookup: safeaction.Wrap("accounts.lookup", lookup(repos), safeaction.WithReporter(reporter)),
	}
}

// Register mounts the actions on router.
func (a Actions) Register(router gin.IRouter) {
	router.POST(ActionSignupPath, a.Signup.Handler())
	router.POST(ActionLookupPath, a.Lookup.Handler())
}

func signup(ctx context.Context, r *http.Request) (response.Response[Account], error) {
	form, err := validation.ExtractRequestFormData[SignupForm](r)
	if err != nil {
		return response.Response[Account]{}, err
	}
	caller, ok := rpc.ClientFromContext(ctx)
	if !ok {
		return response.Response[Account]{}, errNoProcedureClient
	}
	account, err := rpc.Call[Account](ctx, caller, ProcedureCreate, CreateInput{
		Email:    form.Email,
		Name:     form.Name,
		Password: form.Password,
	})
	if err != nil {
		return response.Response[Account]{}, err
	}
	if redirect := strings.TrimSpace(form.Redirect); redirect != "" {
		return response.Response[Account]{}, safeaction.NewRedirect(http.StatusSeeOther, redirect)
	}
	return response.Succeed(account, i18n.FromContext(ctx).Sprintf(KeyCreated)), nil
}

func lookup(repos *Repositories) safeaction.Action[response.Response[Account]] {
	return func(ctx context.Context, r *http.Request) (response.Response[Account], error) {
		form, err := validation.ExtractRequestFormData[LookupForm](r)
		if err != nil {
			return response.Response[Account]{}, err
		}
		if repos == nil || repos.Accounts == nil {
			return response.Response[Account]{}, errors.New("account repositories are not configured")
		}
		tr := i18n.FromContext(ctx)
		account, err := NewService(repos.Accounts).GetByEmail(ctx, tr, form.Email)
		if err != nil {
			return response.Response[Account]{}, err
		}
		return response.Succeed(account, tr.Sprintf(KeyFound)), nil
	}
}
