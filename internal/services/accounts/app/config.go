package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/formrpc/internal/platform/logging"
	"github.com/louisbranch/formrpc/internal/platform/rpc/rpchttp"
)

// Config holds the server configuration.
type Config struct {
	// PublicDomain is the public base URL. It is the only CORS origin and the
	// base of the procedure client URL.
	PublicDomain  string        `env:"FORMRPC_PUBLIC_DOMAIN" envDefault:"http://localhost:8080"`
	HTTPAddr      string        `env:"FORMRPC_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr      string        `env:"FORMRPC_GRPC_ADDR" envDefault:":8081"`
	DBPath        string        `env:"FORMRPC_DB_PATH" envDefault:"data/accounts.db"`
	SessionSecret string        `env:"FORMRPC_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"FORMRPC_SESSION_TTL" envDefault:"24h"`
	RPCPrefix     string        `env:"FORMRPC_RPC_PREFIX" envDefault:"/rpc"`
	RateLimit     float64       `env:"FORMRPC_RATE_LIMIT" envDefault:"20"`
	RateBurst     int           `env:"FORMRPC_RATE_BURST" envDefault:"40"`
	Log           logging.Config
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("FORMRPC_SESSION_SECRET is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("FORMRPC_DB_PATH is required")
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("FORMRPC_HTTP_ADDR is required")
	}
	if _, err := c.Origin(); err != nil {
		return err
	}
	return nil
}

// Origin returns the scheme and host of PublicDomain.
func (c Config) Origin() (string, error) {
	u, err := url.Parse(strings.TrimSpace(c.PublicDomain))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("FORMRPC_PUBLIC_DOMAIN must be an http(s) URL, got %q", c.PublicDomain)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Prefix returns the procedure route prefix.
func (c Config) Prefix() string {
	prefix := "/" + strings.Trim(strings.TrimSpace(c.RPCPrefix), "/")
	if prefix == "/" {
		return rpchttp.DefaultPrefix
	}
	return prefix
}

// ProcedureURL is the base URL clients call procedures on.
func (c Config) ProcedureURL() string {
	return strings.TrimRight(strings.TrimSpace(c.PublicDomain), "/") + c.Prefix()
}
