// Package rootshape decides how the top level of a JSON document maps onto
// the named-field container at the top of a message.
package rootshape

import (
	"fmt"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/models"
)

// Shape is the syntactic kind of a document root
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "empty"
	}
}

// Sniff looks at the first non-whitespace byte of a payload.
func Sniff(data []byte) (Shape, error) {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return ShapeObject, nil
		case '[':
			return ShapeArray, nil
		default:
			return ShapeEmpty, errors.NewDocumentError(
				fmt.Sprintf("invalid first character %q: a JSON document must start with '{' or '['", rune(b)),
				errors.ErrMalformedDocument,
			)
		}
	}
	return ShapeEmpty, nil
}

// Policy carries the optional field name under which array roots are nested.
// An empty Field disables array roots.
type Policy struct {
	Field string
}

// Allows reports whether documents of the given shape may be decoded
func (p Policy) Allows(shape Shape) error {
	if shape == ShapeArray && p.Field == "" {
		return errors.NewRootError("document root is an array but no root array field is configured", errors.ErrArrayRootNotAllowed)
	}
	return nil
}

// Wrap nests a top-level array under the configured field
func (p Policy) Wrap(seq models.Sequence) (*models.Mapping, error) {
	if err := p.Allows(ShapeArray); err != nil {
		return nil, err
	}
	m := models.NewMapping()
	m.Set(p.Field, seq)
	return m, nil
}

// Unwrap returns the array to write as the document root. ok is false when the
// mapping should be written as an object instead.
func (p Policy) Unwrap(m *models.Mapping) (seq models.Sequence, ok bool, err error) {
	if p.Field == "" {
		return nil, false, nil
	}
	v, present := m.Get(p.Field)
	if !present {
		return nil, false, nil
	}
	if m.Len() != 1 {
		return nil, false, errors.NewRootError(
			fmt.Sprintf("root array field %q cannot be unwrapped next to %d other field(s)", p.Field, m.Len()-1),
			errors.ErrAmbiguousRootArray,
		)
	}
	seq, isSeq := v.(models.Sequence)
	if !isSeq {
		return nil, false, errors.NewStructureError(
			fmt.Sprintf("root array field %q holds %s, expected a list", p.Field, describe(v)),
			fmt.Errorf("%w: %w", errors.ErrAmbiguousRootArray, errors.ErrStructureMismatch),
		)
	}
	return seq, true, nil
}

func describe(v models.Value) string {
	switch v.(type) {
	case *models.Mapping:
		return "a mapping"
	case models.Scalar:
		return "a scalar"
	case nil, models.Null:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
