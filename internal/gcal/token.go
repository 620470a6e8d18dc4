package gcal

import (
	"context"
	"time"

	"deal-service/internal/domain/calendar"
	apperrors "deal-service/pkg/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// refreshLeeway refreshes tokens that expire within this window rather than
// racing the expiry mid-request.
const refreshLeeway = 5 * time.Minute

// EnsureValidToken returns a usable access token for the connection,
// refreshing and persisting it when the stored one is expired or close to it.
func (c *Client) EnsureValidToken(ctx context.Context, conn *calendar.Connection) (string, error) {
	if conn.AccessToken != "" && conn.TokenExpiresAt != nil &&
		conn.TokenExpiresAt.After(time.Now().Add(refreshLeeway)) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == "" {
		return "", apperrors.Unauthorized("access token expired and no refresh token available")
	}

	oauthCfg := oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	token, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		return "", apperrors.Upstream("failed to refresh access token", err)
	}

	update := calendar.UpdateTokensInput{
		AccessToken:    token.AccessToken,
		TokenExpiresAt: token.Expiry,
	}
	// Google occasionally rotates the refresh token.
	if token.RefreshToken != "" && token.RefreshToken != conn.RefreshToken {
		update.RefreshToken = &token.RefreshToken
	}

	if err := c.connections.UpdateTokens(ctx, conn.ID, update); err != nil {
		c.log.Error().
			Err(err).
			Str("connection_id", conn.ID.String()).
			Msg("failed to persist refreshed token")
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiresAt = &token.Expiry

	return token.AccessToken, nil
}
