package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		expected    string
	}{
		{"detail string", "application/json", `{"detail":"bad shape"}`, "bad shape"},
		{"detail list is re-encoded", "application/json", `{"detail":[{"loc":["body"],"msg":"too short"}]}`, `[{"loc":["body"],"msg":"too short"}]`},
		{"empty detail falls back to payload", "application/json", `{"detail":"","code":7}`, `{"detail":"","code":7}`},
		{"payload without detail", "application/json", `{"error":"boom"}`, `{"error":"boom"}`},
		{"html error page", "text/html", "<html><head><title>502</title><style>p{}</style></head><body><h1>Bad Gateway</h1><p>nginx</p></body></html>", "Bad Gateway nginx"},
		{"html sniffed without header", "", "<!DOCTYPE html><html><body><p>Service Unavailable</p></body></html>", "Service Unavailable"},
		{"plain text", "text/plain", "internal error\n", "internal error"},
		{"empty body", "", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorDetail(tt.contentType, []byte(tt.body)))
		})
	}
}

func TestErrorDetail_Truncates(t *testing.T) {
	got := errorDetail("text/plain", []byte(strings.Repeat("ñ", 1000)))

	assert.LessOrEqual(t, len(got), maxDetailLen)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, strings.HasPrefix(got, "ññ"))
}
