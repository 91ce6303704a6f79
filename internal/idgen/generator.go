package idgen

import (
	cryptorand "crypto/rand"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the 62-symbol set every generated identifier is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// ShortIDLength is the length of link short ids.
	ShortIDLength = 6
	// ShadowIDLength is the length of minted shadow user ids.
	ShadowIDLength = 32
)

// Bytes at or above this value are rejected so that b % 62 stays uniform.
const rejectAbove = 248

// Reads in a row that yield no usable byte before switching to math/rand.
const maxStalledReads = 4

// Generator produces random identifiers over Alphabet.
type Generator interface {
	Generate(length int) string
}

// Source generates identifiers from an arbitrary byte stream.
type Source struct {
	mu     sync.Mutex
	reader io.Reader
}

// NewSource creates a generator reading randomness from r.
func NewSource(r io.Reader) *Source {
	return &Source{reader: r}
}

// NewCryptoSource creates a generator backed by crypto/rand.
func NewCryptoSource() *Source {
	return NewSource(cryptorand.Reader)
}

// Generate returns exactly length characters. A failing reader never surfaces
// an error: the remaining characters come from math/rand instead, as they do
// when the reader keeps yielding only rejected bytes.
func (s *Source) Generate(length int) string {
	if length <= 0 {
		return ""
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)

	s.mu.Lock()
	defer s.mu.Unlock()

	for stalled := 0; len(out) < length && stalled < maxStalledReads; {
		n, err := io.ReadFull(s.reader, buf)
		before := len(out)

		for _, b := range buf[:n] {
			if b >= rejectAbove {
				continue
			}

			out = append(out, Alphabet[int(b)%len(Alphabet)])

			if len(out) == length {
				return string(out)
			}
		}

		if err != nil {
			break
		}

		if len(out) == before {
			stalled++
		} else {
			stalled = 0
		}
	}

	for len(out) < length {
		out = append(out, Alphabet[rand.IntN(len(Alphabet))])
	}

	return string(out)
}

// NanoID generates identifiers with go-nanoid, caching one generator per length.
type NanoID struct {
	mu         sync.Mutex
	generators map[int]func() string
	fallback   *Source
}

// NewNanoID creates a nanoid-backed generator.
func NewNanoID() *NanoID {
	return &NanoID{
		generators: make(map[int]func() string),
		fallback:   NewCryptoSource(),
	}
}

// Generate returns exactly length characters. Lengths nanoid does not accept
// are served by a crypto/rand source.
func (n *NanoID) Generate(length int) string {
	if length <= 0 {
		return ""
	}

	gen, err := n.generator(length)
	if err != nil {
		return n.fallback.Generate(length)
	}

	return gen()
}

func (n *NanoID) generator(length int) (func() string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen, ok := n.generators[length]; ok {
		return gen, nil
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	n.generators[length] = gen

	return gen, nil
}

var (
	_ Generator = (*Source)(nil)
	_ Generator = (*NanoID)(nil)
)
