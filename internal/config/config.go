// Package config resolves runtime settings from the environment and an
// optional .env file. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/auth"
	"github.com/fpang/comix-generator/internal/comixapi"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/logging"
)

// Environment variables.
const (
	EndpointEnv  = "COMIX_ENDPOINT"
	TimeoutEnv   = "COMIX_TIMEOUT"
	OutputDirEnv = "COMIX_OUTPUT_DIR"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// DefaultOutputDir receives the generated images.
const DefaultOutputDir = "comix-output"

// Config is the resolved configuration.
type Config struct {
	Endpoint      string
	Timeout       time.Duration
	OutputDir     string
	Token         string
	TokenSSMParam string
	LogLevel      string
}

// Load reads settings with precedence environment > .env file > defaults.
// A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	fileVals, err := readEnvFile(envFile)
	if err != nil {
		return Config{}, err
	}
	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileVals[key])
	}

	cfg := Config{
		Endpoint:      get(EndpointEnv),
		OutputDir:     get(OutputDirEnv),
		Token:         get(auth.TokenEnv),
		TokenSSMParam: get(auth.TokenSSMParamEnv),
		LogLevel:      get(logging.LevelEnv),
		Timeout:       controller.DefaultTimeout,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = comixapi.DefaultEndpoint
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if v := get(TimeoutEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", TimeoutEnv, v, err)
		}
		cfg.Timeout = d
	}

	return cfg, cfg.Validate()
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	log.Debug().Str("file", path).Int("keys", len(vals)).Msg("Loaded env file")
	return vals, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}

// TokenSources returns where to look for the access token.
func (c Config) TokenSources() auth.Sources {
	return auth.Sources{Explicit: c.Token, SSMParam: c.TokenSSMParam}
}
