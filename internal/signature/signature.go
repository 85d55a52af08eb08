// Package signature derives the short code and glyph that tag a fusion run.
//
// Both derivations are pure functions of their inputs. Freshness comes from
// the salt, which callers usually build from the invocation time.
package signature

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	CodeLength = 12
	TagLength  = 6
)

// Palette is the ordered set of glyph symbols.
var Palette = [7]string{"🔴", "🟢", "🔵", "🟣", "🟡", "⚪", "⚫"}

type Signature struct {
	ShortCode string
	Glyph     string
	Tag       string
}

// GenerateID hashes label+context+salt and returns the first twelve hex
// characters upper-cased.
func GenerateID(label, context, salt string) string {
	sum := sha256.Sum256([]byte(label + context + salt))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:CodeLength])
}

// GenerateGlyph picks a palette symbol from the first byte of md5(label+code)
// and a tag from the first six hex characters of sha1(code+label).
func GenerateGlyph(label, code string) (symbol, tag string) {
	pick := md5.Sum([]byte(label + code))
	symbol = Palette[int(pick[0])%len(Palette)]

	sum := sha1.Sum([]byte(code + label))
	tag = strings.ToUpper(hex.EncodeToString(sum[:])[:TagLength])
	return symbol, tag
}

// New derives the full signature for a run.
func New(label, context, salt string) Signature {
	code := GenerateID(label, context, salt)
	symbol, tag := GenerateGlyph(label, code)
	return Signature{ShortCode: code, Glyph: symbol, Tag: tag}
}

// GlyphString renders "<symbol>-<tag>".
func (s Signature) GlyphString() string {
	return s.Glyph + "-" + s.Tag
}

func (s Signature) String() string {
	return s.ShortCode + " " + s.GlyphString()
}

// MicrotimeSalt formats t as "0.<8 digit fraction> <unix seconds>".
func MicrotimeSalt(t time.Time) string {
	frac := t.Nanosecond() / 1000
	return fmt.Sprintf("0.%06d00 %d", frac, t.Unix())
}
