// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package testinfra starts throwaway containers for integration tests.
//
// Everything here is behind the "integration" build tag and uses
// testcontainers-go. Tests skip when Docker is not reachable:
//
//	func TestMinIOStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    minio, err := testinfra.NewMinIOContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, minio)
//
//	    store, err := storage.NewMinIOStore(&config.MinIOConfig{
//	        Endpoint:  minio.Endpoint,
//	        AccessKey: minio.AccessKey,
//	        SecretKey: minio.SecretKey,
//	        Bucket:    "pdf",
//	    })
//	    // ...
//	}
//
// # Containers
//
//   - MinIOContainer: S3-compatible object store for internal/storage.
//   - MySQLContainer: MySQL 8 for the database package's mysql driver.
//
// First runs pull images; later runs use the local cache.
package testinfra
