// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/config"
)

const testAccessToken = "ya29.test-token"

func newDriveServer(t *testing.T) *DriveStore {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testAccessToken, r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "mimeType='application/pdf'", q.Get("q"))
		assert.Equal(t, "createdTime desc", q.Get("orderBy"))
		assert.Equal(t, "100", q.Get("pageSize"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[
			{"id":"d2","name":"manual.pdf","mimeType":"application/pdf","size":"2048","createdTime":"2026-02-02T09:00:00Z","description":"manuals"},
			{"id":"d1","name":"wiring.pdf","mimeType":"application/pdf","createdTime":"2026-02-01T09:00:00Z"}
		]}`))
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "d1" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := NewDriveStore(context.Background(), testAccessToken, srv.URL+"/")
	require.NoError(t, err)
	return store
}

func TestDriveStore_List(t *testing.T) {
	t.Parallel()
	store := newDriveServer(t)

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "d2", objects[0].Key)
	assert.Equal(t, "https://drive.google.com/file/d/d2/view", objects[0].URL)
	assert.Equal(t, "manuals", objects[0].Category)
	assert.EqualValues(t, 2048, objects[0].Size)

	assert.Equal(t, "uncategorized", objects[1].Category)
	assert.Equal(t, "2026-02-01T09:00:00Z", objects[1].UploadedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func TestDriveStore_Delete(t *testing.T) {
	t.Parallel()
	store := newDriveServer(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "d1"))
	assert.ErrorIs(t, store.Delete(ctx, "gone"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidKey)
}

func TestNewDriveStore_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewDriveStore(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFactory_DriveRejectedTokenDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"files":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewFactory(&config.StorageConfig{}, testBreakerConfig())
	f.SetDriveEndpoint(srv.URL + "/")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store, err := f.Drive(ctx, "expired")
		require.NoError(t, err)
		_, err = store.List(ctx)
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, "closed", f.BreakerStates()[BackendDrive])

	store, err := f.Drive(ctx, "good")
	require.NoError(t, err)
	_, err = store.List(ctx)
	require.NoError(t, err)
}
