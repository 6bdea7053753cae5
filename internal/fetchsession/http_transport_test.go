package fetchsession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	defer tr.Close()

	html, err := tr.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "ok")
}

func TestHTTPTransport_FetchRetriesOn5xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	tr.policy.BaseDelay = 1
	tr.policy.MaxDelay = 2
	defer tr.Close()

	html, err := tr.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "recovered")
	assert.Equal(t, 3, attempts)
}

func TestHTTPTransport_FetchDoesNotRetryOn4xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	defer tr.Close()

	_, err := tr.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
