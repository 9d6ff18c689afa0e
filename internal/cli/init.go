package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/auth"
	"github.com/fpang/comix-generator/internal/comixapi"
	"github.com/fpang/comix-generator/internal/config"
)

// InitGenerator resolves the access token and builds the API client.
// Exits on an unusable token.
func InitGenerator(ctx context.Context, cfg config.Config, userAgent string) (*comixapi.Client, string) {
	token, err := auth.GetAccessToken(ctx, cfg.TokenSources())
	if err != nil {
		HandleTokenError(err)
	}

	client := comixapi.NewClient(cfg.Endpoint, comixapi.WithUserAgent(userAgent))
	log.Debug().
		Str("endpoint", client.Endpoint()).
		Bool("hasToken", token != "").
		Msg("Generation client ready")
	return client, token
}
