package idgen_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serroba/shadow-links/internal/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read(_ []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

// rejectedReader only ever yields bytes the generator discards.
type rejectedReader struct{}

func (rejectedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0xFF
	}

	return len(p), nil
}

func assertAlphabet(t *testing.T, id string) {
	t.Helper()

	for _, r := range id {
		assert.True(t, strings.ContainsRune(idgen.Alphabet, r), "unexpected rune %q in %q", r, id)
	}
}

func TestSource_Generate(t *testing.T) {
	t.Run("returns requested length over the alphabet", func(t *testing.T) {
		gen := idgen.NewCryptoSource()

		for _, n := range []int{1, 2, 6, 32, 100} {
			id := gen.Generate(n)

			assert.Len(t, id, n)
			assertAlphabet(t, id)
		}
	})

	t.Run("returns empty string for non-positive lengths", func(t *testing.T) {
		gen := idgen.NewCryptoSource()

		assert.Empty(t, gen.Generate(0))
		assert.Empty(t, gen.Generate(-3))
	})

	t.Run("is deterministic for a fixed byte stream", func(t *testing.T) {
		stream := []byte{0, 1, 25, 26, 61, 62, 255, 248, 247}

		id := idgen.NewSource(bytes.NewReader(stream)).Generate(7)

		// 255 and 248 are rejected, 62 wraps to 'A', 247 maps to 247 % 62 = 61.
		assert.Equal(t, "ABZa9A9", id)
	})

	t.Run("falls back when the reader fails", func(t *testing.T) {
		id := idgen.NewSource(failingReader{}).Generate(32)

		assert.Len(t, id, 32)
		assertAlphabet(t, id)
	})

	t.Run("falls back when the reader runs short", func(t *testing.T) {
		id := idgen.NewSource(bytes.NewReader([]byte{0, 1})).Generate(6)

		require.Len(t, id, 6)
		assert.Equal(t, "AB", id[:2])
		assertAlphabet(t, id)
	})

	t.Run("falls back when the reader yields only rejected bytes", func(t *testing.T) {
		gen := idgen.NewSource(rejectedReader{})
		done := make(chan string, 1)

		go func() { done <- gen.Generate(idgen.ShortIDLength) }()

		select {
		case id := <-done:
			assert.Len(t, id, idgen.ShortIDLength)
			assertAlphabet(t, id)
		case <-time.After(2 * time.Second):
			t.Fatal("Generate did not return")
		}

		// The lock is released for the next caller.
		assert.Len(t, gen.Generate(idgen.ShadowIDLength), idgen.ShadowIDLength)
	})

	t.Run("sequential ids differ", func(t *testing.T) {
		gen := idgen.NewCryptoSource()

		assert.NotEqual(t, gen.Generate(idgen.ShortIDLength), gen.Generate(idgen.ShortIDLength))
	})
}

func TestNanoID_Generate(t *testing.T) {
	t.Run("returns requested length over the alphabet", func(t *testing.T) {
		gen := idgen.NewNanoID()

		for _, n := range []int{1, 2, idgen.ShortIDLength, idgen.ShadowIDLength, 300} {
			id := gen.Generate(n)

			assert.Len(t, id, n)
			assertAlphabet(t, id)
		}
	})

	t.Run("returns empty string for non-positive lengths", func(t *testing.T) {
		gen := idgen.NewNanoID()

		assert.Empty(t, gen.Generate(0))
	})

	t.Run("produces distinct ids", func(t *testing.T) {
		gen := idgen.NewNanoID()
		seen := make(map[string]struct{})

		for range 1000 {
			seen[gen.Generate(idgen.ShadowIDLength)] = struct{}{}
		}

		assert.Len(t, seen, 1000)
	})
}
