package formrpc

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("FORMRPC_SESSION_SECRET", "secret")

	cfg, err := ParseConfig(pflag.NewFlagSet("formrpc", pflag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":8081" {
		t.Fatalf("grpc addr = %q, want %q", cfg.GRPCAddr, ":8081")
	}
	if cfg.SessionSecret != "secret" {
		t.Fatalf("session secret = %q", cfg.SessionSecret)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseConfigFlagsOverrideEnvAndFile(t *testing.T) {
	t.Setenv("FORMRPC_HTTP_ADDR", "127.0.0.1:9000")

	path := filepath.Join(t.TempDir(), "formrpc.toml")
	content := "db_path = \"file.db\"\nhttp_addr = \"file:1\"\nrate_burst = 7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	args := []string{"--config", path, "--grpc-addr", "127.0.0.1:9100"}
	cfg, err := ParseConfig(pflag.NewFlagSet("formrpc", pflag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("http addr = %q, want env value", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "127.0.0.1:9100" {
		t.Fatalf("grpc addr = %q, want flag value", cfg.GRPCAddr)
	}
	if cfg.DBPath != "file.db" {
		t.Fatalf("db path = %q, want file value", cfg.DBPath)
	}
	if cfg.RateBurst != 7 {
		t.Fatalf("rate burst = %d, want 7", cfg.RateBurst)
	}
}

func TestParseConfigRejectsUnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("formrpc", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := ParseConfig(fs, []string{"--nope"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}
