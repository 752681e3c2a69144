// Package sanitize cleans caller supplied text before it reaches the agents.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSize is the largest accepted input in bytes.
const DefaultMaxSize = 64 << 10

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
)

// Text enforces DefaultMaxSize. See Limit.
func Text(input string) (string, error) {
	return Limit(input, DefaultMaxSize)
}

// Limit rejects input larger than maxSize bytes or holding invalid UTF-8, and
// strips control characters other than newline, tab and carriage return.
// A non-positive maxSize disables the size check.
func Limit(input string, maxSize int) (string, error) {
	if maxSize > 0 && len(input) > maxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(input), maxSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if !strings.ContainsFunc(input, unsafeControl) {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
