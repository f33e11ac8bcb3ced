package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// maxLoggedBody はデバッグログに載せるボディの上限（生成済みコンテンツは大きい）
const maxLoggedBody = 4 << 10

// logCtxKey はコンテキストにロガーを格納するためのキーです。
type logCtxKey struct{}

// sensitiveHeaders はログ出力時に値をマスキングするヘッダー名のリストです (小文字で定義)。
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-api-key":     true,
	"x-admin-key":   true,
}

// bodyCapture は http.ResponseWriter をラップし、ステータスコードとボディ先頭を記録します。
type bodyCapture struct {
	http.ResponseWriter
	statusCode int
	written    int
	body       *bytes.Buffer
}

func newBodyCapture(w http.ResponseWriter, keepBody bool) *bodyCapture {
	bc := &bodyCapture{ResponseWriter: w, statusCode: http.StatusOK}
	if keepBody {
		bc.body = new(bytes.Buffer)
	}
	return bc
}

func (bc *bodyCapture) WriteHeader(statusCode int) {
	bc.statusCode = statusCode
	bc.ResponseWriter.WriteHeader(statusCode)
}

func (bc *bodyCapture) Write(b []byte) (int, error) {
	if bc.body != nil && bc.body.Len() < maxLoggedBody {
		bc.body.Write(b[:min(len(b), maxLoggedBody-bc.body.Len())])
	}
	n, err := bc.ResponseWriter.Write(b)
	bc.written += n
	return n, err
}

// WithLogger stores logger in ctx for GetLogger. Background jobs use it to
// give services a job-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, logCtxKey{}, logger)
}

// GetLogger はコンテキストから slog.Logger を取得します。無ければ slog.Default()。
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(logCtxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// LoggingMiddleware puts a request-scoped logger into the context and logs
// the start and completion of every request. Bodies are logged at debug level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			requestLogger := logger.With("req_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(WithLogger(r.Context(), requestLogger))

			requestLogger.Info("Request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			debug := logger.Enabled(r.Context(), slog.LevelDebug)
			var reqBody []byte
			if debug && r.Body != nil {
				reqBody, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
			}

			bc := newBodyCapture(w, debug)
			next.ServeHTTP(bc, r)

			level := slog.LevelInfo
			switch {
			case bc.statusCode >= 500:
				level = slog.LevelError
			case bc.statusCode >= 400:
				level = slog.LevelWarn
			}

			requestLogger.Log(r.Context(), level, "Request completed",
				"status", bc.statusCode,
				"latency_ms", float64(time.Since(startTime).Nanoseconds())/1e6,
				"bytes_out", bc.written,
			)

			if debug {
				requestLogger.Debug("Request detail",
					"headers", formatHeaders(r.Header),
					"body", string(reqBody),
				)
				requestLogger.Debug("Response detail",
					"status", bc.statusCode,
					"headers", formatHeaders(bc.Header()),
					"body", bc.body.String(),
				)
			}
		})
	}
}

// formatHeaders はヘッダー情報をログ出力用に整形・マスキングするヘルパー関数
func formatHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			result[key] = "[SENSITIVE]"
			continue
		}
		result[key] = strings.Join(values, ", ")
	}
	return result
}
