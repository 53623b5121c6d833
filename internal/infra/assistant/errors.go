package assistant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrQuotaExceeded     = errors.New("assistant quota exceeded")
	ErrInvalidCredential = errors.New("assistant credential invalid")
	ErrAssistantFailed   = errors.New("assistant request failed")
)

// Classify 先看 genai.APIError 的狀態碼，無法判斷時再比對錯誤訊息
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrAssistantFailed) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	case strings.Contains(msg, "Requested entity was not found"):
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	default:
		return fmt.Errorf("%w: %w", ErrAssistantFailed, err)
	}
}
