package cli

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/auth"
	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/comixapi"
	"github.com/fpang/comix-generator/internal/controller"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitInvalid = 2
	ExitTimeout = 3
)

// ExitCode maps an activation outcome to a process exit code.
func ExitCode(outcome controller.Outcome, err error) int {
	switch outcome {
	case controller.OutcomeSuccess:
		return ExitOK
	case controller.OutcomeInvalid:
		return ExitInvalid
	case controller.OutcomeTimeout:
		return ExitTimeout
	}
	var vErr *comix.ValidationError
	if errors.As(err, &vErr) {
		return ExitInvalid
	}
	if errors.Is(err, controller.ErrTimeout) {
		return ExitTimeout
	}
	if err == nil {
		return ExitOK
	}
	return ExitError
}

// HandleGenerateError logs a hint for the failure and returns the exit code.
// The user-facing message has already been shown by the controller.
func HandleGenerateError(outcome controller.Outcome, err error) int {
	code := ExitCode(outcome, err)
	if err == nil {
		return code
	}

	var apiErr *comixapi.APIError
	var vErr *comix.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Debug().Ints("missing", vErr.Missing).Msg("Captions missing")
	case errors.Is(err, controller.ErrTimeout):
		log.Debug().Err(err).Msg("Use --timeout to wait longer")
	case errors.As(err, &apiErr):
		switch apiErr.Kind {
		case comixapi.KindUnauthorized:
			log.Error().Msg("Access token rejected. Set COMIX_TOKEN or pass --token")
		case comixapi.KindQuotaExceeded:
			log.Error().Msg("Token quota used up. Request a new token")
		case comixapi.KindServer:
			log.Error().Int("status", apiErr.StatusCode).Msg("Generation service failed. Please try again later")
		default:
			log.Debug().Int("status", apiErr.StatusCode).Str("kind", apiErr.Kind.String()).Msg("Generation rejected")
		}
	default:
		log.Debug().Err(err).Msg("Generation failed")
	}
	return code
}

// HandleTokenError reports an unusable access token and exits.
func HandleTokenError(err error) {
	var tokErr *auth.TokenError
	if errors.As(err, &tokErr) {
		switch tokErr.Type {
		case auth.ErrTypeNoToken:
			log.Error().Err(err).Msg("No token found. Pass the token itself or the link it came in")
		case auth.ErrTypeMalformed, auth.ErrTypeBadQuota, auth.ErrTypeBadID, auth.ErrTypeBadSignature:
			log.Error().Err(err).Msg("Access token is malformed. Copy it again from the link you received")
		default:
			log.Error().Err(err).Msg("Access token is invalid")
		}
	} else {
		log.Error().Err(err).Msg("Failed to resolve access token")
	}
	os.Exit(ExitInvalid)
}
