// Package symbol handles normalization and validation of instrument symbols.
// All ledger lookups and storage use the normalized (upper-case) form.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxLen is the longest accepted symbol, matching exchange ticker limits.
const MaxLen = 20

// symbolRegex matches a normalized symbol: upper-case alphanumerics with
// optional dots or dashes after the first character.
// Examples: RELIANCE, TCS, BRK.B, NIFTY-50
var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)

// ErrInvalidSymbol is returned for empty or malformed symbols.
var ErrInvalidSymbol = errors.New("symbol: invalid symbol")

// Normalize trims and upper-cases a raw symbol and validates the result.
// Returns the canonical form used for all position and history keys.
func Normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSymbol)
	}
	if len(s) > MaxLen {
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidSymbol, s, MaxLen)
	}
	if !symbolRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return s, nil
}
