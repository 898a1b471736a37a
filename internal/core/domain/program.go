package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceProgram is the full source text submitted for one run.
// Its identity is Hash, a SHA-256 digest over the raw bytes.
type SourceProgram struct {
	Text string
	Hash string
}

// NewSourceProgram computes the content hash of text.
func NewSourceProgram(text string) SourceProgram {
	sum := sha256.Sum256([]byte(text))
	return SourceProgram{
		Text: text,
		Hash: hex.EncodeToString(sum[:]),
	}
}

// Line returns the 1-based line n of the source, or "" when n is out of range.
func (p SourceProgram) Line(n int) string {
	if n < 1 {
		return ""
	}
	rest := p.Text
	for i := 1; i < n; i++ {
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSuffix(rest, "\r")
}
