// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package storage provides the blob backends that hold machine record
attachments.

Three backends implement the same Store interface:

  - MinIOStore: S3-compatible bucket (default "pdf"), objects keyed by
    "{unixMillis}-{sanitized name}" and served through presigned URLs.
  - ImageKitStore: ImageKit upload and files APIs over plain HTTPS.
  - DriveStore: Google Drive, acting with the caller's OAuth2 access token.

Every store handed out by a Factory is wrapped in a gobreaker circuit
breaker shared per backend. While a breaker is open calls fail fast with
ErrUnavailable.

Clients are built per request from explicit configuration:

	f := storage.NewFactory(&cfg.Storage, &cfg.Breaker)
	store, err := f.MinIO()
	if err != nil {
		return err // ErrNotConfigured when credentials are missing
	}
	objects, err := store.List(ctx)
*/
package storage
