package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/louisbranch/formrpc/internal/platform/httpconst"
)

// ErrInvalidToken reports a session token that failed verification.
var ErrInvalidToken = errors.New("invalid session token")

const bearerPrefix = "Bearer "

// Claims are the session token claims.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 session tokens carried in the Authorization
// header or the session cookie.
type JWTProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTProvider returns a provider signing and verifying with secret.
func NewJWTProvider(secret []byte, issuer string) (*JWTProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	return &JWTProvider{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Issue signs a session token for user that expires after ttl.
func (p *JWTProvider) Issue(user User, ttl time.Duration) (string, Session, error) {
	now := p.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl).UTC(),
	}
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, session, nil
}

// Authenticate resolves the identity carried by the request token.
func (p *JWTProvider) Authenticate(r *http.Request) (Identity, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Identity{}, nil
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		options = append(options, jwt.WithIssuer(p.issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, options...); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	session := &Session{ID: claims.ID, UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	user := &User{ID: claims.Subject, Email: claims.Email, Name: claims.Name}
	return Identity{Session: session, User: user}, nil
}

func tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get(httpconst.HeaderAuthorization); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	if cookie, err := r.Cookie(httpconst.CookieSession); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
