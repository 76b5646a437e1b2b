// Package parser turns a free-text chat line such as "25.50 Coffee" or
// "Gas $40" into an amount and a description.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxInputLength = 500
	MaxNameLength  = 255
)

// Entry is a parsed amount and description. Amount is always a magnitude;
// the sign comes from the transaction nature.
type Entry struct {
	Amount decimal.Decimal
	Name   string
}

var (
	// sign and dollar in either order, plain digits or comma groups of three,
	// optional one or two decimal places
	amountToken = regexp.MustCompile(`^(?:-\$?|\$-?)?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?$`)

	leadingToken  = regexp.MustCompile(`^(\S+)\s+(.+)$`)
	trailingToken = regexp.MustCompile(`^(.+?)\s+(\S+)$`)

	unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "`", "")
)

// Parse reads raw as "<amount> <name>" or "<name> <amount>", preferring the
// amount-first reading when both apply. It reports false when the line
// should be re-entered by the user.
func Parse(raw string) (Entry, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || utf8.RuneCountInString(text) > MaxInputLength {
		return Entry{}, false
	}

	text = strings.TrimSpace(unsafeChars.Replace(text))
	if text == "" {
		return Entry{}, false
	}

	if m := leadingToken.FindStringSubmatch(text); m != nil {
		if entry, ok := build(m[1], m[2]); ok {
			return entry, true
		}
	}
	if m := trailingToken.FindStringSubmatch(text); m != nil {
		if entry, ok := build(m[2], m[1]); ok {
			return entry, true
		}
	}
	return Entry{}, false
}

func build(amount, name string) (Entry, bool) {
	value, ok := ParseAmount(amount)
	if !ok {
		return Entry{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return Entry{}, false
	}
	return Entry{Amount: value, Name: name}, true
}

// ParseAmount parses a single amount token and returns its magnitude.
func ParseAmount(token string) (decimal.Decimal, bool) {
	if !amountToken.MatchString(token) {
		return decimal.Decimal{}, false
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(token)
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value.Abs(), true
}
