package handler

import (
	"errors"
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/checkout"
	"github.com/RoyceAzure/lab/assia/internal/service"
)

var errBadRequestBody = errors.New("invalid request body")

// statusOf service 層錯誤 -> http status
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrQuickOptionUnknown):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, checkout.ErrUnknownField),
		errors.Is(err, errBadRequestBody):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrInvalidFields):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, checkout.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidPassphrase):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAdminDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrOrdersNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	response.ErrorJSON(w, statusOf(err), err, "")
}

// writeCheckoutError 欄位驗證失敗時附上欄位錯誤
func writeCheckoutError(w http.ResponseWriter, err error, state checkout.State) {
	if errors.Is(err, checkout.ErrInvalidFields) {
		response.ErrorWithDataJSON(w, http.StatusUnprocessableEntity, err, "", state.Errors)
		return
	}
	writeError(w, err)
}
