package accounts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/httpx"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/identity"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/services/accounts/storage/sqlite"
)

const testPassword = "Sup3r$ecret"

func newRepos(t *testing.T) *Repositories {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &Repositories{Accounts: store}
}

func newTestService(t *testing.T, repos *Repositories) *Service {
	t.Helper()
	svc := NewService(repos.Accounts)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestServiceCreateAndGet(t *testing.T) {
	t.Parallel()

	repos := newRepos(t)
	svc := newTestService(t, repos)
	tr := i18n.NewTranslator(i18n.EN)

	created, err := svc.Create(context.Background(), tr, NewAccount{Email: " Ada@Example.com ", Name: "Ada", Password: testPassword})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "ada@example.com" || created.ID == "" {
		t.Fatalf("account = %+v", created)
	}

	got, err := svc.Get(context.Background(), tr, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}

	_, err = svc.Create(context.Background(), tr, NewAccount{Email: "ada@example.com", Password: testPassword})
	if !apperrors.IsAlreadyExists(err) {
		t.Fatalf("duplicate error = %v, want AlreadyExists", err)
	}
	if err.Error() != "An account with email ada@example.com already exists." {
		t.Fatalf("duplicate message = %q", err.Error())
	}
}

func TestServiceCreateMatchesStoredTimestamp(t *testing.T) {
	t.Parallel()

	repos := newRepos(t)
	svc := newTestService(t, repos)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 833219804, time.UTC) }
	tr := i18n.NewTranslator(i18n.EN)

	created, err := svc.Create(context.Background(), tr, NewAccount{Email: "ada@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedAt != "2026-03-04T05:06:07.833Z" {
		t.Fatalf("created_at = %q, want %q", created.CreatedAt, "2026-03-04T05:06:07.833Z")
	}
	got, err := svc.GetByEmail(context.Background(), tr, "ada@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}
}

func TestServiceGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newRepos(t))
	_, err := svc.Get(context.Background(), i18n.NewTranslator(i18n.ES), "missing")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("error = %v, want NotFound", err)
	}
	if err.Error() != "No se encontró la cuenta missing." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestServiceAuthenticate(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newRepos(t))
	tr := i18n.NewTranslator(i18n.EN)
	if _, err := svc.Create(context.Background(), tr, NewAccount{Email: "ada@example.com", Password: testPassword}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "ada@example.com", testPassword); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", testPassword},
	} {
		if _, err := svc.Authenticate(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("authenticate(%s) = %v, want ErrInvalidCredentials", tc.email, err)
		}
	}
}

func TestServiceListPages(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newRepos(t))
	tr := i18n.NewTranslator(i18n.EN)
	for _, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		if _, err := svc.Create(context.Background(), tr, NewAccount{Email: email, Password: testPassword}); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	first, err := svc.List(context.Background(), 2, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Accounts) != 2 || first.Accounts[0].Email != "a@example.com" || first.NextPageToken == "" {
		t.Fatalf("first page = %+v", first)
	}
	second, err := svc.List(context.Background(), 2, first.NextPageToken, "")
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if len(second.Accounts) != 1 || second.Accounts[0].Email != "c@example.com" || second.NextPageToken != "" {
		t.Fatalf("second page = %+v", second)
	}
	if _, err := svc.List(context.Background(), 2, "nope", ""); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("error = %v, want ErrInvalidPageToken", err)
	}
}

type procedureHarness struct {
	router   *rpc.Router
	repos    *Repositories
	sessions *identity.JWTProvider
}

func newProcedureHarness(t *testing.T) procedureHarness {
	t.Helper()
	sessions, err := identity.NewJWTProvider([]byte("test-secret"), "formrpc")
	if err != nil {
		t.Fatalf("jwt provider: %v", err)
	}
	router, err := rpc.NewRouter(Procedures(sessions, time.Hour))
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return procedureHarness{router: router, repos: newRepos(t), sessions: sessions}
}

func (h procedureHarness) client(id identity.Identity) *rpc.Client {
	return h.router.Client(rpc.NewContext(rpc.Locals{
		Repositories: h.repos,
		Identity:     id,
		Translator:   i18n.NewTranslator(i18n.EN),
	}))
}

func signedIn(account Account) identity.Identity {
	return identity.Identity{
		Session: &identity.Session{ID: "s-1", UserID: account.ID},
		User:    &identity.User{ID: account.ID, Email: account.Email},
	}
}

func TestProceduresCreateSignInAndMe(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	anonymous := h.client(identity.Identity{})
	ctx := context.Background()

	created, err := rpc.Call[Account](ctx, anonymous, ProcedureCreate, CreateInput{Email: "ada@example.com", Name: "Ada", Password: testPassword})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = anonymous.Call(ctx, ProcedureCreate, CreateInput{Email: "ada@example.com", Password: testPassword}, nil)
	if code := apperrors.CodeOf(err); code != apperrors.CodeConflict {
		t.Fatalf("duplicate code = %s, want CONFLICT", code)
	}

	session, err := rpc.Call[SignInOutput](ctx, anonymous, ProcedureSignIn, SignInInput{Email: "ada@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpconst.HeaderAuthorization, "Bearer "+session.Token)
	id, err := h.sessions.Authenticate(req)
	if err != nil || id.User == nil || id.User.ID != created.ID {
		t.Fatalf("authenticate token = %+v, %v", id, err)
	}

	me, err := rpc.Call[Account](ctx, h.client(id), ProcedureMe, nil)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != created.ID {
		t.Fatalf("me = %+v, want %s", me, created.ID)
	}

	err = anonymous.Call(ctx, ProcedureSignIn, SignInInput{Email: "ada@example.com", Password: "wrong"}, nil)
	transport, ok := apperrors.AsTransport(err)
	if !ok || transport.Code != apperrors.CodeUnauthorized || transport.Message != "Invalid email or password." {
		t.Fatalf("signin error = %v", err)
	}
}

func TestProceduresRequireSession(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	anonymous := h.client(identity.Identity{})
	for _, name := range []string{ProcedureGet, ProcedureList, ProcedureMe} {
		err := anonymous.Call(context.Background(), name, map[string]string{"id": "not-a-uuid"}, nil)
		if code := apperrors.CodeOf(err); code != apperrors.CodeUnauthorized {
			t.Fatalf("%s code = %s, want UNAUTHORIZED", name, code)
		}
	}
}

func TestProceduresGetAndList(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	ctx := context.Background()
	created, err := rpc.Call[Account](ctx, h.client(identity.Identity{}), ProcedureCreate, CreateInput{Email: "ada@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	authed := h.client(signedIn(created))

	err = authed.Call(ctx, ProcedureGet, GetInput{ID: "11111111-1111-4111-8111-111111111111"}, nil)
	transport, ok := apperrors.AsTransport(err)
	if !ok || transport.Code != apperrors.CodeNotFound || !strings.Contains(transport.Message, "11111111-1111-4111-8111-111111111111") {
		t.Fatalf("get missing error = %v", err)
	}

	err = authed.Call(ctx, ProcedureGet, GetInput{ID: "nope"}, nil)
	transport, ok = apperrors.AsTransport(err)
	if !ok || transport.Code != apperrors.CodeInputValidationError || len(transport.Issues.Field("id")) != 1 {
		t.Fatalf("get invalid id error = %v", err)
	}

	page, err := rpc.Call[ListOutput](ctx, authed, ProcedureList, ListInput{PageSize: 10, OrderBy: "created_at"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Accounts) != 1 || page.Accounts[0].ID != created.ID {
		t.Fatalf("page = %+v", page)
	}

	err = authed.Call(ctx, ProcedureList, ListInput{PageToken: "zzz"}, nil)
	transport, ok = apperrors.AsTransport(err)
	if !ok || transport.Code != apperrors.CodeInputValidationError || len(transport.Issues.Field("page_token")) != 1 {
		t.Fatalf("list bad token error = %v", err)
	}
}

func actionEngine(t *testing.T, h procedureHarness) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(httpx.Language(), func(c *gin.Context) {
		locals := rpc.LocalsFromRequest(c.Request, h.repos)
		client := h.router.Client(rpc.NewContext(locals))
		c.Request = c.Request.WithContext(rpc.WithClient(c.Request.Context(), client))
		c.Next()
	})
	NewActions(h.repos, nil).Register(engine)
	return engine
}

func postForm(engine http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeForm)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSignupAction(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	engine := actionEngine(t, h)
	valid := url.Values{"email": {"ada@example.com"}, "password": {testPassword}}

	tests := []struct {
		name   string
		values url.Values
		status int
		body   string
	}{
		{name: "created", values: valid, status: http.StatusOK, body: `"message":"Account created."`},
		{name: "duplicate", values: valid, status: http.StatusConflict, body: `"message":"An account with email ada@example.com already exists."`},
		{name: "invalid", values: url.Values{"email": {"nope"}, "password": {"short"}}, status: http.StatusUnprocessableEntity, body: `"statusCode":422`},
		{name: "redirect", values: url.Values{"email": {"bob@example.com"}, "password": {testPassword}, "redirect": {"/welcome"}}, status: http.StatusSeeOther},
	}
	for _, tt := range tests {
		rec := postForm(engine, ActionSignupPath, tt.values)
		if rec.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d (body %s)", tt.name, rec.Code, tt.status, rec.Body.String())
		}
		if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
			t.Fatalf("%s: body = %s, want %s", tt.name, rec.Body.String(), tt.body)
		}
	}
}

func TestSignupActionRejectsExternalRedirect(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	engine := actionEngine(t, h)
	for _, redirect := range []string{`/\evil.example`, "//evil.example", "https://evil.example"} {
		rec := postForm(engine, ActionSignupPath, url.Values{"email": {"eve@example.com"}, "password": {testPassword}, "redirect": {redirect}})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("redirect %q: status = %d, want %d", redirect, rec.Code, http.StatusUnprocessableEntity)
		}
		if location := rec.Header().Get("Location"); location != "" {
			t.Fatalf("redirect %q: location = %q, want none", redirect, location)
		}
		if !strings.Contains(rec.Body.String(), `"redirect":["Expected a path on this site."]`) {
			t.Fatalf("redirect %q: body = %s", redirect, rec.Body.String())
		}
	}
	if _, err := newTestService(t, h.repos).GetByEmail(context.Background(), i18n.NewTranslator(i18n.EN), "eve@example.com"); !apperrors.IsNotFound(err) {
		t.Fatalf("account created despite rejected redirect: %v", err)
	}
}

func TestSignupActionReportsIssues(t *testing.T) {
	t.Parallel()

	engine := actionEngine(t, newProcedureHarness(t))
	rec := postForm(engine, ActionSignupPath, url.Values{"email": {"ada@example.com"}, "password": {"password"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{`"password":[`, "Expected a must-have uppercase letter."} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("body = %s, want %s", rec.Body.String(), want)
		}
	}
}

func TestLookupAction(t *testing.T) {
	t.Parallel()

	h := newProcedureHarness(t)
	engine := actionEngine(t, h)
	if rec := postForm(engine, ActionSignupPath, url.Values{"email": {"ada@example.com"}, "password": {testPassword}}); rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d", rec.Code)
	}

	found := postForm(engine, ActionLookupPath, url.Values{"email": {"ada@example.com"}})
	if found.Code != http.StatusOK || !strings.Contains(found.Body.String(), `"message":"Account found."`) {
		t.Fatalf("lookup = %d %s", found.Code, found.Body.String())
	}
	missing := postForm(engine, ActionLookupPath, url.Values{"email": {"bob@example.com"}})
	if missing.Code != http.StatusNotFound || !strings.Contains(missing.Body.String(), "bob@example.com") {
		t.Fatalf("lookup missing = %d %s", missing.Code, missing.Body.String())
	}
}
