package dist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleases(t *testing.T) {
	t.Run("fetches and normalizes the index", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/index.json", r.URL.Path)
				w.Write([]byte(`[{"version":"v6.11.3"},{"version":"v6.11.2"},{"version":"v0.10.48"}]`))
			}),
		)
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))

		releases, err := client.Releases(context.Background())
		require.NoError(t, err)
		require.Len(t, releases, 3)
		assert.Equal(t, "6.11.3", releases[0].Version)
		assert.Equal(t, "0.10.48", releases[2].Version)
	})

	t.Run("fails on non 200 responses", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))

		_, err := client.Releases(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("fails on malformed payloads", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"not":"an index"`))
			}),
		)
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))

		_, err := client.Releases(context.Background())
		assert.Error(t, err)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[]`))
			}),
		)
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Releases(ctx)
		assert.Error(t, err)
	})
}
