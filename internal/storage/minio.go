// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
)

const (
	// UploadURLExpiry is the lifetime of the URL returned after an upload.
	UploadURLExpiry = 7 * 24 * time.Hour
	// ListURLExpiry is the lifetime of URLs returned by List.
	ListURLExpiry = 24 * time.Hour

	presignConcurrency = 8
)

// MinIOStore keeps PDFs in a single S3-compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
	now    func() time.Time
}

// NewMinIOStore builds a client from cfg. No network call is made.
func NewMinIOStore(cfg *config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "pdf"
	}
	return &MinIOStore{client: client, bucket: bucket, region: cfg.Region, now: time.Now}, nil
}

// Upload stores r under a timestamped key, creating the bucket on first use.
func (s *MinIOStore) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		logging.Info().Str("bucket", s.bucket).Msg("Created storage bucket")
	}

	uploadedAt := s.now()
	key := objectKey(name, uploadedAt)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, UploadURLExpiry, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return &Object{
		Key:         key,
		Name:        name,
		URL:         u.String(),
		Size:        info.Size,
		ContentType: contentType,
		UploadedAt:  uploadedAt.UTC(),
	}, nil
}

// List returns the bucket's PDFs, newest first. A missing bucket is empty.
func (s *MinIOStore) List(ctx context.Context) ([]Object, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return []Object{}, nil
	}

	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, info.Err)
		}
		if !strings.HasSuffix(info.Key, ".pdf") {
			continue
		}
		uploadedAt := info.LastModified
		if uploadedAt.IsZero() {
			uploadedAt = s.now()
		}
		objects = append(objects, Object{
			Key:         info.Key,
			Name:        displayName(info.Key),
			Size:        info.Size,
			ContentType: info.ContentType,
			UploadedAt:  uploadedAt.UTC(),
		})
	}

	if err := s.presignAll(ctx, objects); err != nil {
		return nil, err
	}

	sortNewestFirst(objects)
	if objects == nil {
		objects = []Object{}
	}
	return objects, nil
}

// presignAll fills URL on every object with bounded concurrency.
func (s *MinIOStore) presignAll(ctx context.Context, objects []Object) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(presignConcurrency)

	for i := range objects {
		g.Go(func() error {
			u, err := s.client.PresignedGetObject(gctx, s.bucket, objects[i].Key, ListURLExpiry, url.Values{})
			if err != nil {
				return fmt.Errorf("failed to presign %s: %w", objects[i].Key, err)
			}
			objects[i].URL = u.String()
			return nil
		})
	}
	return g.Wait()
}

// Delete removes key. A missing bucket reports ErrNotFound.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s: %w", s.bucket, ErrNotFound)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func sortNewestFirst(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].UploadedAt.After(objects[j].UploadedAt)
	})
}
