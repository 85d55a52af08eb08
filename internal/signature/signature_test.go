package signature

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	sum := sha256.Sum256([]byte("fusionTENET_COMPOSITE_DIRECTsalt"))
	want := strings.ToUpper(hex.EncodeToString(sum[:])[:12])

	got := GenerateID("fusion", "TENET_COMPOSITE_DIRECT", "salt")
	assert.Equal(t, want, got)
	assert.Len(t, got, CodeLength)
	assert.Equal(t, strings.ToUpper(got), got)
}

func TestSaltChangesCodeOnly(t *testing.T) {
	a := GenerateID("fusion", "ctx", "salt-1")
	b := GenerateID("fusion", "ctx", "salt-2")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, GenerateID("fusion", "ctx", "salt-1"))
}

func TestGenerateGlyphIsPure(t *testing.T) {
	code := GenerateID("fusion", "ctx", "salt")

	s1, t1 := GenerateGlyph("fusion", code)
	s2, t2 := GenerateGlyph("fusion", code)
	assert.Equal(t, s1, s2)
	assert.Equal(t, t1, t2)

	pick := md5.Sum([]byte("fusion" + code))
	assert.Equal(t, Palette[int(pick[0])%7], s1)

	sum := sha1.Sum([]byte(code + "fusion"))
	assert.Equal(t, strings.ToUpper(hex.EncodeToString(sum[:])[:6]), t1)
}

func TestPaletteCoverage(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		symbol, tag := GenerateGlyph("label", GenerateID("x", "y", time.Unix(int64(i), 0).String()))
		assert.Contains(t, Palette, symbol)
		assert.Len(t, tag, TagLength)
		seen[symbol] = true
	}
	assert.Len(t, seen, len(Palette))
}

func TestNewAndRendering(t *testing.T) {
	sig := New("fusion", "ctx", "salt")
	require.Len(t, sig.ShortCode, CodeLength)

	symbol, tag := GenerateGlyph("fusion", sig.ShortCode)
	assert.Equal(t, symbol, sig.Glyph)
	assert.Equal(t, tag, sig.Tag)
	assert.Equal(t, symbol+"-"+tag, sig.GlyphString())
	assert.Equal(t, sig.ShortCode+" "+symbol+"-"+tag, sig.String())
}

func TestMicrotimeSalt(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	assert.Equal(t, "0.12345600 1700000000", MicrotimeSalt(ts))
	assert.Equal(t, "0.00000000 5", MicrotimeSalt(time.Unix(5, 0)))
}
