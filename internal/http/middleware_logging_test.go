package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger_CarriesChainRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var reqID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = middleware.GetReqID(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	})
	h := middleware.RequestID(RequestLogger(logger)(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", nil))

	require.NotEmpty(t, reqID)
	out := buf.String()
	require.Contains(t, out, "level=INFO")
	require.Contains(t, out, "request_id="+reqID)
	require.Contains(t, out, "method=POST")
	require.Contains(t, out, "path=/api/v1/accounts")
	require.Contains(t, out, "status=201")
	require.Contains(t, out, "bytes=8")
}

func TestRequestLogger_ServerErrorLogsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "replay failed", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	out := buf.String()
	require.Contains(t, out, "level=ERROR")
	require.Contains(t, out, "status=500")
}
