package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/rs/zerolog"
)

func RecoverMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		panic("logger is nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					var err error
					if e, ok := rec.(error); ok {
						err = e
					} else {
						err = fmt.Errorf("%v", rec)
					}
					logger.Error().
						Err(err).
						Str("request_id", getRequestID(r)).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")

					response.ErrorJSON(w, http.StatusInternalServerError, nil, "Internal Server Error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
