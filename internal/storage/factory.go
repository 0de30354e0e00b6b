// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/tomtom215/machinelog/internal/config"
)

// Backend names, also used as breaker and metric labels.
const (
	BackendMinIO    = "minio"
	BackendImageKit = "imagekit"
	BackendDrive    = "drive"
)

// Factory builds per-request stores from configuration. Breakers are
// shared so failures accumulate across requests.
type Factory struct {
	cfg           config.StorageConfig
	breakers      map[string]*breaker
	driveEndpoint string
	oauthEndpoint *oauth2.Endpoint
}

// NewFactory creates a factory with one breaker per backend.
func NewFactory(cfg *config.StorageConfig, breakerCfg *config.BreakerConfig) *Factory {
	return &Factory{
		cfg: *cfg,
		breakers: map[string]*breaker{
			BackendMinIO:    newBreaker(BackendMinIO, breakerCfg),
			BackendImageKit: newBreaker(BackendImageKit, breakerCfg),
			BackendDrive:    newBreaker(BackendDrive, breakerCfg),
		},
	}
}

// MinIO returns the guarded MinIO store.
func (f *Factory) MinIO() (Store, error) {
	s, err := NewMinIOStore(&f.cfg.MinIO)
	if err != nil {
		return nil, err
	}
	return f.guard(BackendMinIO, s), nil
}

// ImageKit returns the guarded ImageKit store.
func (f *Factory) ImageKit() (Store, error) {
	s, err := NewImageKitStore(&f.cfg.ImageKit)
	if err != nil {
		return nil, err
	}
	return f.guard(BackendImageKit, s), nil
}

// Drive returns a guarded Drive store acting with accessToken.
func (f *Factory) Drive(ctx context.Context, accessToken string) (Store, error) {
	s, err := NewDriveStore(ctx, accessToken, f.driveEndpoint)
	if err != nil {
		return nil, err
	}
	return f.guard(BackendDrive, s), nil
}

// OAuth returns the Google OAuth2 helper for the Drive client.
func (f *Factory) OAuth() (*GoogleOAuth, error) {
	g, err := NewGoogleOAuth(&f.cfg.Drive)
	if err != nil || f.oauthEndpoint == nil {
		return g, err
	}
	return g.withEndpoint(*f.oauthEndpoint), nil
}

// BreakerStates reports each backend's breaker state for health output.
func (f *Factory) BreakerStates() map[string]string {
	states := make(map[string]string, len(f.breakers))
	for name, b := range f.breakers {
		states[name] = b.State()
	}
	return states
}

// SetDriveEndpoint overrides the Drive API base URL.
func (f *Factory) SetDriveEndpoint(endpoint string) {
	f.driveEndpoint = endpoint
}

// SetOAuthEndpoint overrides Google's authorization and token URLs.
func (f *Factory) SetOAuthEndpoint(authURL, tokenURL string) {
	f.oauthEndpoint = &oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
}

func (f *Factory) guard(backend string, s Store) Store {
	return &guardedStore{store: s, breaker: f.breakers[backend]}
}
