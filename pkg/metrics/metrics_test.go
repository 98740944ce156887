package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopClientMetrics(t *testing.T) {
	// A nil ClientMetrics must be usable through OrNoop.
	m := OrNoop(nil)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordCall("MNT", time.Millisecond, errors.New("boom"))
		m.RecordBytes("sent", 48)
		m.RecordConnect(nil)
		m.RecordFailure("framing")
	})

	custom := NewNoopClientMetrics()
	assert.Equal(t, custom, OrNoop(custom))
}

// Registry state is global, so disabled and enabled behaviour are checked in
// one test, in that order.
func TestServer_Handler(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		if IsEnabled() {
			t.Skip("registry already initialized")
		}
		srv := NewServer(ServerConfig{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Enabled", func(t *testing.T) {
		InitRegistry()
		require.True(t, IsEnabled())
		require.NotNil(t, GetRegistry())

		srv := NewServer(ServerConfig{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("IndexAndNotFound", func(t *testing.T) {
		srv := NewServer(ServerConfig{Port: 9191})
		assert.Equal(t, 9191, srv.Port())

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/metrics")
		assert.Contains(t, rec.Body.String(), "/healthz")

		rec = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(ServerConfig{})

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec
	}

	t.Run("NoCheck", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get().Code)
	})

	t.Run("Healthy", func(t *testing.T) {
		srv.SetHealthCheck(func() error { return nil })
		rec := get()
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok\n", rec.Body.String())
	})

	t.Run("Unhealthy", func(t *testing.T) {
		srv.SetHealthCheck(func() error { return errors.New("connection refused") })
		rec := get()
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("Removed", func(t *testing.T) {
		srv.SetHealthCheck(nil)
		assert.Equal(t, http.StatusOK, get().Code)
	})
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ServerConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.NoError(t, srv.Stop(context.Background()))
}
