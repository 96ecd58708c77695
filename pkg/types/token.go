package types

import (
	"errors"
	"fmt"
)

// MaxTokenIdentifierLen bounds the length of a token identifier.
const MaxTokenIdentifierLen = 32

// ErrInvalidTokenIdentifier is returned for malformed token identifiers.
var ErrInvalidTokenIdentifier = errors.New("invalid token identifier")

// TokenIdentifier names a fungible asset, e.g. "WINTER" or "WINTER-8a3f1c".
// Identifiers compare byte for byte; no case folding is applied.
type TokenIdentifier string

// String returns the identifier as a plain string.
func (t TokenIdentifier) String() string {
	return string(t)
}

// Validate checks that the identifier is non-empty, at most
// MaxTokenIdentifierLen bytes, and made of A-Z, a-z, 0-9 and '-'.
func (t TokenIdentifier) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTokenIdentifier)
	}
	if len(t) > MaxTokenIdentifierLen {
		return fmt.Errorf("%w: length %d exceeds %d", ErrInvalidTokenIdentifier, len(t), MaxTokenIdentifierLen)
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
		default:
			return fmt.Errorf("%w: character %q at %d", ErrInvalidTokenIdentifier, c, i)
		}
	}
	return nil
}
