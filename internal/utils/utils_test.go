package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  https://Example.com/a?id=1#top ", "https://example.com/a?id=1"},
		{"https://example.com/a", "https://example.com/a"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalURL(tt.in))
	}
	assert.Equal(t, URLKey("https://example.com/a#x"), URLKey("https://example.com/a"))
}

func TestNewSlug(t *testing.T) {
	a, b := NewSlug(), NewSlug()
	assert.Len(t, a, slugLength)
	assert.NotEqual(t, a, b)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "人工", Truncate("人工智能", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "a b c", CollapseSpace(" a \n b\t\tc "))
}
