package formatter

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/jsonvalue"
	"github.com/mcncl/jsoncodec/internal/parser"
)

// Formatter serializes JSON value trees to UTF-8 bytes
type Formatter struct {
	api jsoniter.API
}

// NewFormatter creates a Formatter producing compact output
func NewFormatter() *Formatter {
	return &Formatter{api: jsoniter.Config{EscapeHTML: false}.Froze()}
}

// NewIndentFormatter creates a Formatter that indents nested values by step spaces
func NewIndentFormatter(step int) *Formatter {
	if step <= 0 {
		return NewFormatter()
	}
	return &Formatter{api: jsoniter.Config{EscapeHTML: false, IndentionStep: step}.Froze()}
}

// Format writes v as a JSON document. Object members are written in order and
// numbers are written from their literal text.
func (f *Formatter) Format(v jsonvalue.Value) ([]byte, error) {
	stream := f.api.BorrowStream(nil)
	defer f.api.ReturnStream(stream)

	if err := writeValue(stream, v); err != nil {
		return nil, err
	}
	if stream.Error != nil {
		return nil, errors.NewOutputError("failed to serialize JSON", stream.Error)
	}

	// The stream buffer goes back to the pool, so hand out a copy.
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// Reformat parses a JSON document and writes it again with this formatter's layout
func (f *Formatter) Reformat(data []byte) ([]byte, error) {
	v, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Format(v)
}

func writeValue(stream *jsoniter.Stream, v jsonvalue.Value) error {
	switch x := v.(type) {
	case *jsonvalue.Object:
		if x == nil {
			stream.WriteNil()
			return nil
		}
		if x.Len() == 0 {
			stream.WriteEmptyObject()
			return nil
		}
		stream.WriteObjectStart()
		for i, m := range x.Members {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(m.Key)
			if err := writeValue(stream, m.Value); err != nil {
				return err
			}
		}
		stream.WriteObjectEnd()
	case jsonvalue.Array:
		if len(x) == 0 {
			stream.WriteEmptyArray()
			return nil
		}
		stream.WriteArrayStart()
		for i, item := range x {
			if i > 0 {
				stream.WriteMore()
			}
			if err := writeValue(stream, item); err != nil {
				return err
			}
		}
		stream.WriteArrayEnd()
	case jsonvalue.String:
		stream.WriteString(string(x))
	case jsonvalue.Number:
		if x == "" {
			return errors.NewOutputError("empty number literal", errors.ErrStructureMismatch)
		}
		stream.WriteRaw(string(x))
	case jsonvalue.Boolean:
		stream.WriteBool(bool(x))
	case jsonvalue.Null:
		stream.WriteNil()
	default:
		return errors.NewStructureError(fmt.Sprintf("cannot serialize value of type %T", v), errors.ErrStructureMismatch)
	}
	return nil
}
