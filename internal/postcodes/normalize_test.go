package postcodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase no space", "sw1a1aa", "SW1A 1AA"},
		{"already canonical", "SW1A 1AA", "SW1A 1AA"},
		{"extra interior spaces", "sw1a   1aa", "SW1A 1AA"},
		{"leading and trailing space", "  m1 1ae ", "M1 1AE"},
		{"tabs", "ec1a\t1bb", "EC1A 1BB"},
		{"short outward", "n81aa", "N8 1AA"},
		{"too short to split", "aa", "AA"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"sw1a1aa", "SW1A 1AA", "b33 8th", "CF991NA"}
	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", raw)
	}
}

func TestNormalizeCaseAndSpaceInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("SW1A 1AA"), Normalize("sw1a1aa"))
	assert.Equal(t, "SW1A 1AA", Normalize("sw1a1aa"))
}
