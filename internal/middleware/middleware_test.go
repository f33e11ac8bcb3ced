package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keep_up_backend/internal/metrics"
	"keep_up_backend/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ok":true}`))
}

func TestAdminKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		given      string
		wantStatus int
	}{
		{"正常系: 一致", "secret", "secret", http.StatusOK},
		{"異常系: ヘッダー無し", "secret", "", http.StatusForbidden},
		{"異常系: 不一致", "secret", "guess", http.StatusForbidden},
		{"異常系: キー未設定なら常に拒否", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AdminKeyMiddleware(tt.configured)(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(http.MethodPost, "/admin/season/promote", nil)
			if tt.given != "" {
				req.Header.Set(AdminKeyHeader, tt.given)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusForbidden {
				var resp model.APIErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, "FORBIDDEN", resp.Error.Code)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var fromCtx *slog.Logger
	h := chimw.RequestID(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetLogger(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(`{"reason":"x"}`))
	req.Header.Set(AdminKeyHeader, "do-not-log")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.NotNil(t, fromCtx)
	assert.NotSame(t, slog.Default(), fromCtx)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Request completed"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"req_id"`)
	assert.Contains(t, out, `short and stout`)
	assert.Contains(t, out, `[SENSITIVE]`)
	assert.NotContains(t, out, "do-not-log")
}

func TestGetLogger_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Same(t, slog.Default(), GetLogger(req.Context()))
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.Get("/api/v1/users/{user_id}", okHandler)

	before := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/users/{user_id}", "200"))
	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	after := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/users/{user_id}", "200"))
	assert.Equal(t, float64(2), after-before, "requests are grouped by route pattern")
}
