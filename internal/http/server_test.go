package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/internal/http/handlers"
	"github.com/jmylchreest/gomyth/internal/http/middleware"
)

type staticSource struct {
	status handlers.MonitorStatus
}

func (s staticSource) Latest() (*handlers.MonitorStatus, bool) { return &s.status, true }

func (s staticSource) Check(context.Context) (*handlers.MonitorStatus, error) {
	return &s.status, nil
}

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := NewServer(config.ServerConfig{
		Host:            "127.0.0.1",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, logger, "1.2.3")
	handlers.NewHealthHandler("1.2.3").Register(srv.API())
	handlers.NewStatusHandler(staticSource{status: handlers.MonitorStatus{
		Free:     "10.0 GB",
		LowSpace: true,
		Upcoming: []handlers.ScheduledRecording{{Title: "News", Channel: "BBC1", Status: "WILL_RECORD"}},
	}}).Register(srv.API())
	return srv, &buf
}

func TestServer_Routes(t *testing.T) {
	srv, logs := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))

	var status handlers.MonitorStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.LowSpace)
	require.Len(t, status.Upcoming, 1)
	assert.Equal(t, "News", status.Upcoming[0].Title)

	assert.Contains(t, logs.String(), `"path":"/api/v1/status"`)
	assert.Contains(t, logs.String(), "req-42")
}

func TestServer_NotFoundIsLoggedAsWarning(t *testing.T) {
	srv, logs := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestServer_RecoversPanics(t *testing.T) {
	srv, logs := newTestServer(t)
	huma.Get(srv.API(), "/boom", func(context.Context, *struct{}) (*struct{}, error) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + l.Addr().String() + "/livez")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
