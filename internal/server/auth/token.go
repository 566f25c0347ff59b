package auth

import (
	"crypto/rand"
	"errors"
	"io"
)

// AlphanumericAlphabet is the default session token alphabet.
const AlphanumericAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TokenGenerator draws random strings from a fixed alphabet.
type TokenGenerator struct {
	alphabet string
	reader   io.Reader
}

// NewTokenGenerator returns a generator over alphabet reading randomness from
// r. A nil r means crypto/rand.Reader. The alphabet must hold between 2 and
// 256 distinct single-byte characters.
func NewTokenGenerator(alphabet string, r io.Reader) (*TokenGenerator, error) {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return nil, errors.New("alphabet must contain between 2 and 256 characters")
	}
	if r == nil {
		r = rand.Reader
	}
	return &TokenGenerator{alphabet: alphabet, reader: r}, nil
}

// NewAlphanumericGenerator returns a generator over AlphanumericAlphabet
// backed by crypto/rand.
func NewAlphanumericGenerator() *TokenGenerator {
	return &TokenGenerator{alphabet: AlphanumericAlphabet, reader: rand.Reader}
}

// Generate returns a string of n characters. Bytes that would bias the
// distribution are rejected and redrawn.
func (g *TokenGenerator) Generate(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}

	size := len(g.alphabet)
	limit := 256 - 256%size

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(g.reader, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%size])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
