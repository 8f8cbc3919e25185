package httpclient_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsched/internal/platform/httpclient"
	"rxsched/internal/shared"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDoAppliesDefaultHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Probe")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpclient.New(
		httpclient.WithLogger(quiet()),
		httpclient.WithHeaders(map[string]string{"X-Probe": "schedmon"}),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "schedmon", gotHeader)
}

func TestDoDoesNotOverrideRequestHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Probe")
	}))
	defer srv.Close()

	c := httpclient.New(
		httpclient.WithLogger(quiet()),
		httpclient.WithHeaders(map[string]string{"X-Probe": "default"}),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Probe", "explicit")

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "explicit", gotHeader)
}

func TestCheckSucceedsOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithLogger(quiet()))
	assert.NoError(t, c.Check(context.Background(), srv.URL))
}

func TestCheckFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithLogger(quiet()))
	err := c.Check(context.Background(), srv.URL)

	require.Error(t, err)
	assert.True(t, shared.IsDependencyFailure(err))
}

func TestCheckFailsOnUnreachableHost(t *testing.T) {
	c := httpclient.New(
		httpclient.WithLogger(quiet()),
		httpclient.WithTimeout(200*time.Millisecond),
	)
	err := c.Check(context.Background(), "http://127.0.0.1:1/healthz")

	require.Error(t, err)
	assert.True(t, shared.IsDependencyFailure(err))
}

func TestCheckRejectsMalformedURL(t *testing.T) {
	c := httpclient.New(httpclient.WithLogger(quiet()))
	err := c.Check(context.Background(), "http://bad url/")

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
