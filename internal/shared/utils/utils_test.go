package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		wantErr bool
	}{
		{"https://frames.example.com", false},
		{"http://localhost:8001", false},
		{"http://127.0.0.1:8001/", false},
		{"", true},
		{"*", true},
		{"ftp://example.com", true},
		{"https://", true},
		{"https://example.com/frame.html", true},
		{"https://example.com?x=1", true},
		{"https://user@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			err := ValidateOrigin(tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSource(t *testing.T) {
	assert.NoError(t, ValidateSource(""))
	assert.NoError(t, ValidateSource("print('hi')\n"))
	assert.Error(t, ValidateSource("a\x00b"))
	assert.Error(t, ValidateSource(string([]byte{0xff, 0xfe})))
	assert.ErrorContains(t, ValidateSource(strings.Repeat("x", MaxSourceSize+1)), "exceeds maximum")
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("classroom_2", "profile", true))
	assert.NoError(t, ValidateID("", "profile", false))
	assert.ErrorContains(t, ValidateID("", "profile", true), "profile is required")
	assert.Error(t, ValidateID("has space", "profile", true))
	assert.Error(t, ValidateID(strings.Repeat("a", MaxProfileNameLength+1), "profile", true))
}

func TestHasher(t *testing.T) {
	h := DefaultHasher()

	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.Hash(nil))
	assert.Equal(t, h.Hash([]byte("abc")), h.HashString("abc"))
	assert.Equal(t, h.HashFields("a", "b"), h.HashFields("b", "a"))

	etag := h.ETag([]byte("abc"))
	assert.Len(t, etag, 18)
	assert.True(t, strings.HasPrefix(etag, `"`))
	assert.NotEqual(t, etag, h.ETag([]byte("abd")))
}
