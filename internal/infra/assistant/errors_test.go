package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "quota", err: errors.New("Error 429: you exceeded your current quota"), expected: ErrQuotaExceeded},
		{name: "429 only", err: errors.New("status 429"), expected: ErrQuotaExceeded},
		{name: "invalid key", err: errors.New("Requested entity was not found."), expected: ErrInvalidCredential},
		{name: "other", err: errors.New("connection reset by peer"), expected: ErrAssistantFailed},
		{
			name:     "api error 429",
			err:      fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusTooManyRequests, Message: "Resource has been exhausted"}),
			expected: ErrQuotaExceeded,
		},
		{
			name:     "api error resource exhausted",
			err:      fmt.Errorf("generate content: %w", genai.APIError{Status: "RESOURCE_EXHAUSTED"}),
			expected: ErrQuotaExceeded,
		},
		{
			name:     "api error forbidden",
			err:      fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"}),
			expected: ErrInvalidCredential,
		},
		{
			name:     "api error 404 falls back to message",
			err:      fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusNotFound, Message: "Requested entity was not found."}),
			expected: ErrInvalidCredential,
		},
		{
			name:     "api error 500",
			err:      fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusInternalServerError, Message: "internal"}),
			expected: ErrAssistantFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			assert.ErrorIs(t, got, tc.expected)
			assert.ErrorIs(t, got, tc.err)
		})
	}

	assert.NoError(t, Classify(nil))

	// 已分類過的不再包一層
	classified := Classify(errors.New("quota"))
	assert.Same(t, classified, Classify(classified))
}

func TestUnconfigured(t *testing.T) {
	reply, err := Unconfigured{}.Reply(context.Background(), nil, "olá")
	assert.Empty(t, reply)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
