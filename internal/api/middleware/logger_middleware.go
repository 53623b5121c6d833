package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type StatusRecoder struct {
	http.ResponseWriter
	status int
}

func (w *StatusRecoder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// 沒有呼叫 WriteHeader 時為 200
func (w *StatusRecoder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// 記錄request 請求，並累計 http 指標
// route 使用 chi 的路由樣板，避免 session id 造成過多 label
func LoggerMiddleware(logger *zerolog.Logger, m *metrics.Metrics) func(next http.Handler) http.Handler {
	if logger == nil {
		panic("logger is nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recoder := &StatusRecoder{
				ResponseWriter: w,
			}
			start := time.Now()
			next.ServeHTTP(recoder, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.HTTPRequest(r.Method, route, strconv.Itoa(recoder.Status()))

			logger.Info().
				Str("request_id", getRequestID(r)).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("route", route).
				Int("status", recoder.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request completed")
		})
	}
}
