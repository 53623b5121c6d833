package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/constants"
	"github.com/RoyceAzure/lab/assia/internal/service"
)

var (
	errMissingAuthHeader = errors.New("authorization header is not provided")
	errInvalidAuthFormat = errors.New("invalid authorization header format")
	errUnsupportedType   = errors.New("unsupported authorization type")
	errInvalidToken      = errors.New("invalid admin token")
)

/*
AdminAuthMiddleware
從header取得 Authorization => 檢查格式 => 檢查Bearer => 用 adminService 檢查 token
通過後 token 放入 ctx
*/
func AdminAuthMiddleware(adminService service.IAdminService) func(next http.Handler) http.Handler {
	if adminService == nil {
		panic("adminService is nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				response.ErrorJSON(w, http.StatusUnauthorized, err, "unauthenticated")
				return
			}
			if !adminService.Authorize(token) {
				response.ErrorJSON(w, http.StatusUnauthorized, errInvalidToken, "unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), constants.AdminTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(string(constants.AuthorizationHeaderKey))
	if authHeader == "" {
		return "", errMissingAuthHeader
	}
	fields := strings.Fields(authHeader)
	if len(fields) != 2 {
		return "", errInvalidAuthFormat
	}
	if strings.ToLower(fields[0]) != string(constants.AuthorizationTypeBearer) {
		return "", errUnsupportedType
	}
	return fields[1], nil
}
