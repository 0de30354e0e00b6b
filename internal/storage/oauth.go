// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tomtom215/machinelog/internal/config"
)

// ErrMissingCode is returned when the OAuth2 callback carries no code.
var ErrMissingCode = errors.New("authorization code not found")

// GoogleOAuth exchanges Google authorization codes for Drive access tokens.
type GoogleOAuth struct {
	config *oauth2.Config
}

// NewGoogleOAuth returns ErrNotConfigured when the client id or secret is
// missing.
func NewGoogleOAuth(cfg *config.DriveConfig) (*GoogleOAuth, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"https://www.googleapis.com/auth/drive.file"}
	}
	return &GoogleOAuth{config: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}}, nil
}

// withEndpoint swaps the token endpoint. Used by tests.
func (g *GoogleOAuth) withEndpoint(ep oauth2.Endpoint) *GoogleOAuth {
	c := *g.config
	c.Endpoint = ep
	return &GoogleOAuth{config: &c}
}

// AuthCodeURL returns the consent page URL for state.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades code for a token.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for access token: %w", err)
	}
	return tok, nil
}
