package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "PADDOCK_"
	envFileVar = "PADDOCK_CONFIG"
)

// FilePath returns the config file named by PADDOCK_CONFIG, if any.
func FilePath() string {
	return os.Getenv(envFileVar)
}

// Load builds a Config by layering defaults, the optional file named by
// PADDOCK_CONFIG, and env vars.
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, FilePath())
}

// LoadFile is Load with an explicit file path. An empty path skips the file layer.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path
//  3. env (prefix PADDOCK_)
func LoadFile(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PADDOCK_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags; PADDOCK_CONFIG itself is not a setting.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
