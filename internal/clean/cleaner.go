// Package clean normalizes file names according to CleaningRules
package clean

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/woodgear/fmove/pkg/types"
)

// ErrInvalidName is wrapped by every CleaningError
var ErrInvalidName = errors.New("invalid file name")

// CleaningError reports a name that cleaning reduced to nothing usable
type CleaningError struct {
	Name   string
	Result string
	Reason string
}

func (e *CleaningError) Error() string {
	return fmt.Sprintf("cannot clean %q: %s (got %q)", e.Name, e.Reason, e.Result)
}

func (e *CleaningError) Unwrap() error {
	return ErrInvalidName
}

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"Ä", "Ae",
	"Ö", "Oe",
	"Ü", "Ue",
	"ß", "ss",
)

// Clean applies rules to name. The Enabled flag is not consulted here;
// callers decide whether cleaning runs at all.
func Clean(name string, rules types.CleaningRules) (string, error) {
	result := name

	if rules.ReplaceUmlauts {
		// Decomposed input (a + U+0308) would slip past the table
		result = umlauts.Replace(norm.NFC.String(result))
	}

	if rules.RemoveSpaces {
		result = strings.ReplaceAll(result, " ", "_")
	}

	if rules.RemoveSpecialChars {
		result = strings.Map(func(r rune) rune {
			if isAllowed(r) {
				return r
			}
			return -1
		}, result)
	}

	if result == "" {
		return "", &CleaningError{Name: name, Result: result, Reason: "name is empty"}
	}
	if strings.Trim(result, ".") == "" {
		return "", &CleaningError{Name: name, Result: result, Reason: "name consists only of dots"}
	}

	return result, nil
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
