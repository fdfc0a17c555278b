package commands

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/diogo/imagestudio/internal/errors"
)

func TestFormatErrorMessage_Nil(t *testing.T) {
	if got := formatErrorMessage(nil, "ctx"); got != "" {
		t.Fatalf("expected empty for nil error, got %s", got)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "api error",
			err:  apperrors.NewAPIError(500, "/api/v1/chat/completions", "upstream failure"),
			want: []string{"upstream failure", "HTTP Status: 500", "Endpoint: /api/v1/chat/completions"},
		},
		{
			name: "auth error",
			err:  apperrors.NewAPIError(401, "/api/v1/chat/completions", "bad key"),
			want: []string{"HTTP Status: 401", "Hint:"},
		},
		{
			name: "network error",
			err:  apperrors.NewNetworkError("request", "/api/v1/chat/completions", errors.New("connection reset")),
			want: []string{"Endpoint:", "Hint: Check your internet connection"},
		},
		{
			name: "missing credential",
			err:  fmt.Errorf("send: %w", apperrors.ErrMissingCredential),
			want: []string{"no API key configured", "config set-key"},
		},
		{
			name: "not found",
			err:  fmt.Errorf("chat x: %w", apperrors.ErrNotFound),
			want: []string{"Failed: chat x: not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatErrorMessage(tt.err, "Failed")
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("formatErrorMessage() missing %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestFormatErrorMessage_Redacts(t *testing.T) {
	err := apperrors.NewAPIError(400, "/api", "bad request for sk-or-v1-secret")
	out := formatErrorMessage(err, "Failed")
	if strings.Contains(out, "sk-or-v1-secret") {
		t.Errorf("formatErrorMessage() leaks the key: %s", out)
	}
	if !strings.Contains(out, apperrors.RedactedKey) {
		t.Errorf("formatErrorMessage() should show the redaction marker: %s", out)
	}
}
