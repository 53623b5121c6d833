package middleware

import (
	"errors"
	"net"
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/infra/ratelimit"
	"github.com/go-chi/chi/v5"
)

var errTooManyRequests = errors.New("too many requests")

// KeyFunc 由請求取出限流用的 key，回傳空字串代表不限流
type KeyFunc func(r *http.Request) string

// URLParamKey 依路由參數分流
// 需掛在已解析路由參數的位置
func URLParamKey(param string) KeyFunc {
	return func(r *http.Request) string {
		if v := chi.URLParam(r, param); v != "" {
			return param + ":" + v
		}
		return ""
	}
}

// ClientKey 依來源 IP 分流，需放在 RealIP 之後
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "client:" + host
}

func RateLimitMiddleware(limiter ratelimit.ILimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("limiter is nil")
	}
	if keyFunc == nil {
		panic("key func is nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key != "" && !limiter.Allow(r.Context(), key) {
				response.ErrorJSON(w, http.StatusTooManyRequests, errTooManyRequests, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
