// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/config"
)

const testPrivateKey = "private_test_key"

func newImageKitServer(t *testing.T) (*httptest.Server, *ImageKitStore) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testPrivateKey || pass != "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Your request does not contain private API key."}`))
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(f)
		assert.Equal(t, "machine photo", string(content))
		assert.Equal(t, "photo.jpg", hdr.Filename)
		assert.Equal(t, "/machine-records", r.FormValue("folder"))
		assert.Equal(t, "photo.jpg", r.FormValue("fileName"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"fileId":   "file_1",
			"name":     "photo_abc.jpg",
			"url":      "https://ik.imagekit.io/demo/machine-records/photo_abc.jpg",
			"size":     len(content),
			"fileType": "image",
		})
	})
	mux.HandleFunc("GET /v1/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/machine-records", r.URL.Query().Get("path"))
		_, _ = w.Write([]byte(`[
			{"type":"folder","name":"sub"},
			{"type":"file","fileId":"f1","name":"a.pdf","url":"https://ik/a.pdf","size":10,"mime":"application/pdf","createdAt":"2026-01-01T10:00:00.000Z"},
			{"type":"file","fileId":"f2","name":"b.jpg","url":"https://ik/b.jpg","size":20,"mime":"image/jpeg","createdAt":"2026-01-02T10:00:00.000Z"}
		]`))
	})
	mux.HandleFunc("DELETE /v1/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "f1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"The requested file does not exist."}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := NewImageKitStore(&config.ImageKitConfig{
		PrivateKey: testPrivateKey,
		UploadURL:  srv.URL + "/upload",
		APIURL:     srv.URL + "/v1/",
		Folder:     "/machine-records",
	})
	require.NoError(t, err)
	return srv, store
}

func TestImageKitStore_Upload(t *testing.T) {
	t.Parallel()
	_, store := newImageKitServer(t)

	obj, err := store.Upload(context.Background(), "photo.jpg", "image/jpeg", strings.NewReader("machine photo"), 13)
	require.NoError(t, err)
	assert.Equal(t, "file_1", obj.Key)
	assert.Equal(t, "https://ik.imagekit.io/demo/machine-records/photo_abc.jpg", obj.URL)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.EqualValues(t, 13, obj.Size)
}

func TestImageKitStore_UploadRejectedKey(t *testing.T) {
	t.Parallel()
	srv, _ := newImageKitServer(t)

	store, err := NewImageKitStore(&config.ImageKitConfig{
		PrivateKey: "wrong",
		UploadURL:  srv.URL + "/upload",
		APIURL:     srv.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "photo.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "private API key")
}

func TestImageKitStore_List(t *testing.T) {
	t.Parallel()
	_, store := newImageKitServer(t)

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "f2", objects[0].Key, "newest first")
	assert.Equal(t, "f1", objects[1].Key)
	assert.Equal(t, "application/pdf", objects[1].ContentType)
}

func TestImageKitStore_Delete(t *testing.T) {
	t.Parallel()
	_, store := newImageKitServer(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "f1"))
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, " "), ErrInvalidKey)
}

func TestNewImageKitStore_NotConfigured(t *testing.T) {
	t.Parallel()

	_, err := NewImageKitStore(&config.ImageKitConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
