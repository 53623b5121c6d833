package response

import (
	"encoding/json"
	"net/http"
)

const (
	SuccessCode    = 0
	SuccessMessage = "success"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ResponseError Code 為 http status
// 欄位驗證失敗時 Data 為 欄位 -> 訊息
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func SuccessJSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{
		Code:    SuccessCode,
		Message: SuccessMessage,
		Data:    data,
	})
}

func CreatedJSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{
		Code:    SuccessCode,
		Message: SuccessMessage,
		Data:    data,
	})
}

// ErrorJSON message 為空時使用 http status 文字
func ErrorJSON(w http.ResponseWriter, status int, err error, message string) {
	ErrorWithDataJSON(w, status, err, message, nil)
}

func ErrorWithDataJSON(w http.ResponseWriter, status int, err error, message string, data any) {
	if message == "" {
		message = http.StatusText(status)
	}
	res := ResponseError{
		Code:    status,
		Message: message,
		Data:    data,
	}
	if err != nil {
		res.Error = err.Error()
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
