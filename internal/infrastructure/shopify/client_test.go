package shopify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service.", true},
		{"500 Internal Server Error", true},
		{"Not Found", false},
		{"[API] Invalid API key or access token (unrecognized login or wrong password) 401", false},
		{"422 Unprocessable Entity", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(errors.New(tt.err)))
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Less(t, cfg.InitialInterval, cfg.MaxInterval)
}
