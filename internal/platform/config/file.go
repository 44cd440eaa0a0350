package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Load reads an optional TOML file and then the environment into target.
//
// File keys are the environment variable names without prefix, in any case:
// with prefix "FORMRPC_", the key http_addr sets FORMRPC_HTTP_ADDR. Real
// environment variables always win over the file. An empty path skips the file.
func Load(path string, prefix string, target any) error {
	environment := map[string]string{}
	if strings.TrimSpace(path) != "" {
		values, err := readFile(path)
		if err != nil {
			return err
		}
		for key, value := range values {
			environment[prefix+strings.ToUpper(key)] = value
		}
	}
	for key, value := range env.ToMap(os.Environ()) {
		environment[key] = value
	}
	if err := env.ParseWithOptions(target, env.Options{Environment: environment}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func readFile(path string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("read config file %s: key %q: tables are not supported", path, key)
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values, nil
}
