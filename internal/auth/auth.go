// Package auth resolves the quota token that hosted generation endpoints
// require with each request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	// TokenEnv holds the token directly.
	TokenEnv = "COMIX_TOKEN"
	// TokenSSMParamEnv names an SSM SecureString parameter holding the token.
	TokenSSMParamEnv = "COMIX_TOKEN_SSM_PARAM"

	credentialDir  = ".comix-generator"
	credentialFile = "token.gpg"
)

// ParameterGetter is the subset of the SSM client used to read the token.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Sources lists where GetAccessToken may look. Zero values skip a source.
type Sources struct {
	// Explicit is a token given on the command line.
	Explicit string
	// SSMParam is the parameter name to read.
	SSMParam string
	// SSM overrides the client built from the default AWS config.
	SSM ParameterGetter
	// GPGFile overrides ~/.comix-generator/token.gpg.
	GPGFile string
}

// SourcesFromEnv fills Sources from COMIX_TOKEN and COMIX_TOKEN_SSM_PARAM.
func SourcesFromEnv() Sources {
	return Sources{
		Explicit: os.Getenv(TokenEnv),
		SSMParam: os.Getenv(TokenSSMParamEnv),
	}
}

// GetAccessToken returns the quota token and checks its shape.
// Priority order:
//  1. Explicit value (flag or COMIX_TOKEN)
//  2. SSM parameter named by SSMParam
//  3. GPG-encrypted file at ~/.comix-generator/token.gpg
//
// No token anywhere is not an error: self-hosted endpoints do not need one,
// and the server answers 401 if it does.
func GetAccessToken(ctx context.Context, src Sources) (string, error) {
	raw, origin, err := lookup(ctx, src)
	if err != nil {
		return "", err
	}
	if raw == "" {
		log.Debug().Msg("No access token configured")
		return "", nil
	}

	tok, err := ParseToken(raw)
	if err != nil {
		return "", fmt.Errorf("access token from %s: %w", origin, err)
	}
	log.Debug().
		Str("source", origin).
		Int("quota", tok.Quota).
		Str("tokenId", tok.ID.String()).
		Msg("Using access token")
	return tok.String(), nil
}

func lookup(ctx context.Context, src Sources) (value, origin string, err error) {
	if v := strings.TrimSpace(src.Explicit); v != "" {
		return v, "flag or environment", nil
	}

	if src.SSMParam != "" {
		v, err := getFromSSM(ctx, src.SSM, src.SSMParam)
		if err != nil {
			return "", "", err
		}
		return v, "SSM parameter " + src.SSMParam, nil
	}

	path := src.GPGFile
	if path == "" {
		path, err = credentialPath()
		if err != nil {
			return "", "", err
		}
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return "", "", nil
	}
	v, err := getFromGPG(ctx, path)
	if err != nil {
		return "", "", err
	}
	return v, "GPG file " + path, nil
}

// getFromSSM reads a SecureString parameter with decryption.
func getFromSSM(ctx context.Context, client ParameterGetter, name string) (string, error) {
	if client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
		client = ssm.NewFromConfig(cfg)
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read SSM parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", name)
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}

// getFromGPG decrypts the token file with the user's gpg agent.
func getFromGPG(ctx context.Context, path string) (string, error) {
	log.Debug().Str("file", path).Msg("Decrypting GPG token file")

	cmd := exec.CommandContext(ctx, "gpg", "--decrypt", "--quiet", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func credentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}
