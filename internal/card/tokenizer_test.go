package card

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zoobzio/clockz"
)

var tokenFormat = regexp.MustCompile(`^TKN_[0-9a-f]{16}_[0-9a-f]{16}$`)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer("test-secret", clockz.RealClock)

	token := tok.Tokenize("4532015112830366")
	assert.Regexp(t, tokenFormat, token)
	assert.NotContains(t, token, "4532015112830366")
	assert.NotContains(t, token, "0366")
}

func TestTokenizer_TokensNeverCollide(t *testing.T) {
	tok := NewTokenizer("test-secret", nil)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token := tok.Tokenize("4532015112830366")
		_, dup := seen[token]
		assert.False(t, dup, "token %s issued twice", token)
		seen[token] = struct{}{}
	}
}

func TestTokenizer_Fingerprint(t *testing.T) {
	tok := NewTokenizer("test-secret", nil)

	a := tok.Fingerprint("4532015112830366")
	b := tok.Fingerprint("4532 0151 1283 0366")
	assert.Equal(t, a, b, "formatting must not change the fingerprint")
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, tok.Fingerprint("4111111111111111"))

	other := NewTokenizer("another-secret", nil)
	assert.NotEqual(t, a, other.Fingerprint("4532015112830366"))
}

func TestMask(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"4532015112830366", "4532 **** **** 0366"},
		{"4532 0151 1283 0366", "4532 **** **** 0366"},
		{"1234", "****"},
		{"1234567", "*******"},
		{"12345678", "1234 **** **** 5678"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.number))
		})
	}
}

func TestLastFourMask(t *testing.T) {
	assert.Equal(t, "**** **** **** 0366", LastFourMask("4532015112830366"))
	assert.Equal(t, strings.Repeat("*", 4), LastFourMask("1234"))
}
