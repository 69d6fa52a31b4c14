// Package typetag keeps JSON numbers and booleans recognisable after they have
// been stored in a text-only message field.
//
// A number is stored as "number(<literal>)" and a boolean as "boolean(true)" or
// "boolean(false)". Number literals are normalised on the decimal text itself:
// trailing fractional zeros are dropped and exponents up to MaxPlainExponent are
// expanded, so 123.100000000000000000 is stored as number(123.1) and no binary
// float is ever involved. Larger exponents keep a scientific literal.
package typetag

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/shopspring/decimal"
)

const (
	NumberPrefix  = "number("
	BooleanPrefix = "boolean("
	Suffix        = ")"
)

// MaxPlainExponent is the largest distance from the decimal point written out
// in full.
const MaxPlainExponent = 1000

var integerRegex = regexp.MustCompile(`^[+-]?[0-9]+([eE][+-]?[0-9]+)?$`)

var bigTen = big.NewInt(10)

// Kind is the JSON type a scalar is written as
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// Tag is the result of reading a scalar back.
type Tag struct {
	Kind Kind
	// Text is the string itself for KindString, the normalised JSON number
	// literal for KindNumber and "true" or "false" for KindBoolean.
	Text string
}

// Bool reports the boolean value of a KindBoolean tag
func (t Tag) Bool() bool {
	return t.Kind == KindBoolean && t.Text == "true"
}

// Normalize returns the plain decimal text of a JSON number literal.
// Integral values have no fractional part and trailing fractional zeros are
// removed. Negative zero is written as 0. A malformed literal or an exponent
// that does not fit in 64 bits is a document error.
func Normalize(literal string) (string, error) {
	text, err := normalize(literal)
	if err != nil {
		return "", errors.NewDocumentError(fmt.Sprintf("invalid number literal %q: %v", literal, err), errors.ErrMalformedDocument)
	}
	return text, nil
}

// EncodeNumber wraps a JSON number literal as number(<normalised literal>)
func EncodeNumber(literal string) (string, error) {
	normalized, err := Normalize(literal)
	if err != nil {
		return "", err
	}
	return NumberPrefix + normalized + Suffix, nil
}

// EncodeBoolean wraps b as boolean(true) or boolean(false)
func EncodeBoolean(b bool) string {
	if b {
		return BooleanPrefix + "true" + Suffix
	}
	return BooleanPrefix + "false" + Suffix
}

// Parse reads a scalar back. Only an exact number(...) or boolean(...) wrapper
// is treated as a tag; anything else is a plain string. A wrapper whose body
// does not parse is an error.
func Parse(s string) (Tag, error) {
	if body, ok := unwrap(s, NumberPrefix); ok {
		text, err := parseNumber(body)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: KindNumber, Text: text}, nil
	}
	if body, ok := unwrap(s, BooleanPrefix); ok {
		switch body {
		case "true", "false":
			return Tag{Kind: KindBoolean, Text: body}, nil
		default:
			return Tag{}, errors.NewTagError(fmt.Sprintf("cannot parse %q as a boolean in %q", body, s), errors.ErrMalformedTypeTag)
		}
	}
	return Tag{Kind: KindString, Text: s}, nil
}

func unwrap(s, prefix string) (string, bool) {
	if len(s) < len(prefix)+len(Suffix) || !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, Suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(Suffix)], true
}

// parseNumber writes bodies containing '.' or ',' as decimals and everything
// else as integers with an optional exponent.
func parseNumber(body string) (string, error) {
	if !strings.ContainsAny(body, ".,") && !integerRegex.MatchString(body) {
		return "", errors.NewTagError(fmt.Sprintf("cannot parse %q as an integer", body), errors.ErrMalformedTypeTag)
	}
	text, err := normalize(body)
	if err != nil {
		return "", errors.NewTagError(fmt.Sprintf("cannot parse %q as a decimal number: %v", body, err), errors.ErrMalformedTypeTag)
	}
	return text, nil
}

// normalize splits off the exponent so it is never handed to the decimal
// parser, which only takes 32 bit exponents and expands them in String.
func normalize(s string) (string, error) {
	mantissa, exp := s, int64(0)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		e, err := strconv.ParseInt(s[i+1:], 10, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return "", fmt.Errorf("exponent out of range")
			}
			return "", fmt.Errorf("invalid exponent")
		}
		exp = e
	}
	d, err := decimal.NewFromString(mantissa)
	if err != nil {
		return "", fmt.Errorf("invalid mantissa")
	}

	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return "0", nil
	}
	exp, ok := addExponent(int64(d.Exponent()), exp)
	if !ok {
		return "", fmt.Errorf("exponent out of range")
	}
	rem := new(big.Int)
	for {
		q, r := new(big.Int).QuoRem(coef, bigTen, rem)
		if r.Sign() != 0 {
			break
		}
		coef = q
		if exp, ok = addExponent(exp, 1); !ok {
			return "", fmt.Errorf("exponent out of range")
		}
	}

	if exp >= -MaxPlainExponent && exp <= MaxPlainExponent {
		return decimal.NewFromBigInt(coef, int32(exp)).String(), nil
	}
	return coef.String() + "e" + strconv.FormatInt(exp, 10), nil
}

func addExponent(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
