package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/louisbranch/formrpc/internal/platform/config"
	"github.com/louisbranch/formrpc/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// ServiceFormRPC names the procedure server for startup telemetry and logs.
const ServiceFormRPC = "formrpc"

// EnvPrefix prefixes every environment variable the commands read.
const EnvPrefix = "FORMRPC_"

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
}

// ParseConfig loads an optional TOML file and environment defaults into cfg.
func ParseConfig[T any](cfg *T, file string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.Load(file, EnvPrefix, cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *pflag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ConfigFileFlag is the flag naming the optional TOML config file.
const ConfigFileFlag = "config"

// ParseConfigFromArgs reads the --config flag, loads the file and env into
// cfg, then parses args again so explicit flags win.
func ParseConfigFromArgs[T any](cfg *T, fs *pflag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if fs.Lookup(ConfigFileFlag) == nil {
		fs.String(ConfigFileFlag, "", "path to a TOML config file")
	}
	if err := ParseArgs(fs, args); err != nil {
		return err
	}
	file, err := fs.GetString(ConfigFileFlag)
	if err != nil {
		return err
	}

	explicit := map[*pflag.Flag][]string{}
	fs.Visit(func(flag *pflag.Flag) {
		if flag.Name == ConfigFileFlag {
			return
		}
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			explicit[flag] = slice.GetSlice()
			return
		}
		explicit[flag] = []string{flag.Value.String()}
	})

	if err := ParseConfig(cfg, file); err != nil {
		return err
	}

	// Flags set on the command line win over the file and the environment.
	for flag, values := range explicit {
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			if err := slice.Replace(values); err != nil {
				return fmt.Errorf("flag --%s: %w", flag.Name, err)
			}
			continue
		}
		if err := flag.Value.Set(values[0]); err != nil {
			return fmt.Errorf("flag --%s: %w", flag.Name, err)
		}
	}
	return nil
}

// RunWithTelemetry configures observability and executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures observability and executes a service run loop.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("service", service).Msg("otel shutdown")
		}
	}()
	return run(ctx)
}
