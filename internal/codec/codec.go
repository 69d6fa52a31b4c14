// Package codec transcodes JSON payloads to message bodies and back.
//
// A Codec is built once from immutable Settings and holds no other state, so a
// single instance can serve any number of goroutines.
package codec

import (
	"fmt"

	"github.com/mcncl/jsoncodec/internal/converter"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/formatter"
	"github.com/mcncl/jsoncodec/internal/jsonvalue"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/mcncl/jsoncodec/internal/parser"
	"github.com/mcncl/jsoncodec/internal/rootshape"
)

// Settings are fixed when the codec is created
type Settings struct {
	// EncodeTypeInfo turns tagged scalars back into JSON numbers and booleans on encode.
	EncodeTypeInfo bool
	// DecodeTypeInfo tags JSON numbers and booleans on decode.
	DecodeTypeInfo bool
	// RootArrayField names the field a top-level JSON array is nested under.
	// Empty means array roots are rejected.
	RootArrayField string
}

// Codec converts between raw JSON bytes and message bodies
type Codec struct {
	settings  Settings
	converter converter.Converter
	policy    rootshape.Policy
	formatter *formatter.Formatter
}

// New creates a Codec for the given settings
func New(settings Settings) *Codec {
	return &Codec{
		settings: settings,
		converter: converter.Converter{
			DecodeTypeInfo: settings.DecodeTypeInfo,
			EncodeTypeInfo: settings.EncodeTypeInfo,
		},
		policy:    rootshape.Policy{Field: settings.RootArrayField},
		formatter: formatter.NewFormatter(),
	}
}

// Settings returns the settings the codec was built with
func (c *Codec) Settings() Settings {
	return c.settings
}

// Decode parses a JSON payload into a message body. An empty payload gives an
// empty mapping; an array root is nested under the root array field.
func (c *Codec) Decode(data []byte) (*models.Mapping, error) {
	shape, err := rootshape.Sniff(data)
	if err != nil {
		return nil, err
	}
	if shape == rootshape.ShapeEmpty {
		return models.NewMapping(), nil
	}
	if err := c.policy.Allows(shape); err != nil {
		return nil, err
	}

	root, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	switch x := root.(type) {
	case *jsonvalue.Object:
		return c.converter.ToMapping(x)
	case jsonvalue.Array:
		v, err := c.converter.ToMessage(x)
		if err != nil {
			return nil, err
		}
		return c.policy.Wrap(v.(models.Sequence))
	default:
		return nil, errors.NewDocumentError(fmt.Sprintf("unexpected %T at the document root", root), errors.ErrMalformedDocument)
	}
}

// Encode writes a message body as a JSON payload. An empty body gives an empty
// payload; a body holding only the root array field is written as a bare array.
func (c *Codec) Encode(m *models.Mapping) ([]byte, error) {
	if m.Len() == 0 {
		return []byte{}, nil
	}

	seq, unwrap, err := c.policy.Unwrap(m)
	if err != nil {
		return nil, err
	}

	var root jsonvalue.Value
	if unwrap {
		root, err = c.converter.FromMessage(seq)
	} else {
		root, err = c.converter.FromMapping(m)
	}
	if err != nil {
		return nil, err
	}
	return c.formatter.Format(root)
}
