// Package selector parses selection expressions against a file listing
package selector

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/woodgear/fmove/pkg/types"
)

var (
	// ErrRange is wrapped by every RangeError
	ErrRange = errors.New("invalid range")
	// ErrBadPattern reports a malformed glob pattern
	ErrBadPattern = errors.New("invalid pattern")
)

// RangeError reports range bounds outside the listing
type RangeError struct {
	Low, High, Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range %d-%d is outside 1-%d", e.Low, e.High, e.Count)
}

func (e *RangeError) Unwrap() error {
	return ErrRange
}

var rangeExpr = regexp.MustCompile(`^\d+-\d+$`)

// Parse turns an expression into a Rule without looking at a listing.
// Items of an index list that are not positive integers are dropped.
func Parse(expr string) (types.Rule, error) {
	trimmed := strings.TrimSpace(expr)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "q":
		return types.Rule{Kind: types.RuleCancel}, nil
	case lower == "alle" || lower == "all":
		return types.Rule{Kind: types.RuleAll}, nil
	case strings.Contains(trimmed, "*"):
		if _, err := path.Match(lower, ""); err != nil {
			return types.Rule{}, fmt.Errorf("%w: %q", ErrBadPattern, trimmed)
		}
		return types.Rule{Kind: types.RuleGlob, Pattern: trimmed}, nil
	case rangeExpr.MatchString(trimmed):
		bounds := strings.SplitN(trimmed, "-", 2)
		low, errLow := strconv.Atoi(bounds[0])
		high, errHigh := strconv.Atoi(bounds[1])
		if errLow != nil || errHigh != nil {
			return types.Rule{}, fmt.Errorf("%w: %q", ErrRange, trimmed)
		}
		return types.Rule{Kind: types.RuleRange, Low: low, High: high}, nil
	}

	rule := types.Rule{Kind: types.RuleIndexList}
	if trimmed == "" {
		return rule, nil
	}
	for _, item := range strings.Split(trimmed, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil || n < 1 {
			continue
		}
		rule.Indices = append(rule.Indices, n)
	}
	return rule, nil
}

// Select applies expr to listing. Index lists keep the order and the
// duplicates of the expression; every other form yields listing order.
// A zero-file result is returned without error so the caller can re-prompt.
func Select(listing []types.FileEntry, expr string) (types.Selection, error) {
	rule, err := Parse(expr)
	if err != nil {
		return types.Selection{}, err
	}
	return Apply(listing, rule)
}

// Apply evaluates a parsed rule against listing
func Apply(listing []types.FileEntry, rule types.Rule) (types.Selection, error) {
	sel := types.Selection{Rule: rule}

	switch rule.Kind {
	case types.RuleCancel:
		sel.Cancelled = true

	case types.RuleAll:
		sel.Files = append([]types.FileEntry(nil), listing...)

	case types.RuleGlob:
		pattern := strings.ToLower(rule.Pattern)
		for _, f := range listing {
			ok, err := path.Match(pattern, strings.ToLower(f.Name))
			if err != nil {
				return types.Selection{}, fmt.Errorf("%w: %q", ErrBadPattern, rule.Pattern)
			}
			if ok {
				sel.Files = append(sel.Files, f)
			}
		}

	case types.RuleRange:
		if rule.Low < 1 || rule.Low > rule.High || rule.High > len(listing) {
			return types.Selection{}, &RangeError{Low: rule.Low, High: rule.High, Count: len(listing)}
		}
		sel.Files = append([]types.FileEntry(nil), listing[rule.Low-1:rule.High]...)

	default:
		for _, n := range rule.Indices {
			if n < 1 || n > len(listing) {
				continue
			}
			sel.Files = append(sel.Files, listing[n-1])
		}
	}

	return sel, nil
}
