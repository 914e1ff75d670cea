package store

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sjsage522/soldlistings/services/cloudinary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloudinary serves the upload, admin lookup and delivery endpoints for raw resources
func fakeCloudinary(t *testing.T) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	blobs := map[string]string{}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1_1/demo/raw/upload":
			assert.NoError(t, r.ParseForm())
			id := r.PostForm.Get("public_id")
			file := r.PostForm.Get("file")
			blobs[id] = file[strings.Index(file, ",")+1:]
			w.Write([]byte(`{"public_id":"` + id + `","secure_url":"` + server.URL + `/delivery/` + id + `"}`))
		case strings.HasPrefix(r.URL.Path, "/v1_1/demo/resources/raw/upload/"):
			id := strings.TrimPrefix(r.URL.Path, "/v1_1/demo/resources/raw/upload/")
			if _, ok := blobs[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":{"message":"Resource not found"}}`))
				return
			}
			w.Write([]byte(`{"public_id":"` + id + `","secure_url":"` + server.URL + `/delivery/` + id + `"}`))
		case strings.HasPrefix(r.URL.Path, "/delivery/"):
			id := strings.TrimPrefix(r.URL.Path, "/delivery/")
			encoded, ok := blobs[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			data, _ := base64.StdEncoding.DecodeString(encoded)
			w.Write(data)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCloudinaryBlobStore(t *testing.T) {
	server := fakeCloudinary(t)
	client := cloudinary.NewClient(server.URL+"/v1_1", "demo", "key", "secret", 5*time.Second)
	s := NewSnapshotStore("cloudinary", NewCloudinaryBlobStore(client))
	ctx := context.Background()

	_, err := s.Get(ctx, testKey)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	location, err := s.Put(ctx, testKey, sampleSnapshot(2, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/delivery/"+testKey, location)

	snap, err := s.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalListings)
	assert.Len(t, snap.Listings, 2)
}
