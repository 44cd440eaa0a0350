// Package formrpc parses procedure server flags and launches the service.
package formrpc

import (
	"context"

	"github.com/spf13/pflag"

	entrypoint "github.com/louisbranch/formrpc/internal/platform/cmd"
	"github.com/louisbranch/formrpc/internal/platform/logging"
	server "github.com/louisbranch/formrpc/internal/services/accounts/app"
)

// Config holds formrpc command configuration.
type Config = server.Config

// ParseConfig parses the optional config file, environment and flags into
// Config. Flags win over the environment, which wins over the file.
func ParseConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.HTTPAddr, "http-addr", "", "The HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", "", "The gRPC listen address, empty to disable")
	fs.StringVar(&cfg.DBPath, "db-path", "", "The account SQLite database path")
	fs.StringVar(&cfg.PublicDomain, "public-domain", "", "The public base URL")
	fs.StringVar(&cfg.Log.Level, "log-level", "", "The log level")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the procedure server.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.New(entrypoint.ServiceFormRPC, cfg.Log)
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFormRPC, func(ctx context.Context) error {
		return server.Run(ctx, cfg, logger)
	})
}
