package card

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/zoobzio/clockz"
)

const tokenPrefix = "TKN_"

// Tokenizer issues opaque card tokens and dedupe fingerprints. Tokens are
// random per call and cannot be mapped back to the number; fingerprints are
// stable per secret so the same card can be recognised without storing it.
type Tokenizer struct {
	secret []byte
	clock  clockz.Clock
}

// NewTokenizer creates a tokenizer keyed by secret
func NewTokenizer(secret string, clock clockz.Clock) *Tokenizer {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Tokenizer{secret: []byte(secret), clock: clock}
}

// Tokenize returns "TKN_{16 hex of sha256(number+secret+unix)}_{16 random hex}".
func (t *Tokenizer) Tokenize(number string) string {
	n := Clean(number)
	ts := strconv.FormatInt(t.clock.Now().Unix(), 10)

	h := sha256.New()
	h.Write([]byte(n))
	h.Write(t.secret)
	h.Write([]byte(ts))
	digest := hex.EncodeToString(h.Sum(nil))[:16]

	suffix := make([]byte, 8)
	_, _ = rand.Read(suffix)

	return tokenPrefix + digest + "_" + hex.EncodeToString(suffix)
}

// Fingerprint is HMAC-SHA256 of the cleaned number under the tokenizer
// secret. Equal numbers give equal fingerprints.
func (t *Tokenizer) Fingerprint(number string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte("card-fingerprint:"))
	mac.Write([]byte(Clean(number)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Mask renders the display form "4532 **** **** 0366". Numbers shorter than
// eight digits are fully starred.
func Mask(number string) string {
	n := Clean(number)
	if len(n) < 8 {
		return stars(len(n))
	}
	return n[:4] + " **** **** " + n[len(n)-4:]
}

// LastFourMask renders "**** **** **** 0366", the form acquirers echo back.
func LastFourMask(number string) string {
	n := Clean(number)
	if len(n) < 8 {
		return stars(len(n))
	}
	return "**** **** **** " + n[len(n)-4:]
}

func stars(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}
	return string(b)
}
