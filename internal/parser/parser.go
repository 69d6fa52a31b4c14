package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	jsoniter "github.com/json-iterator/go"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/jsonvalue"
)

// numberRegex is the RFC 8259 number grammar. The iterator accepts any run of
// number characters, so every literal is checked against it.
var numberRegex = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

var api = jsoniter.Config{EscapeHTML: false}.Froze()

// Parse converts a complete UTF-8 JSON document into a value tree.
// Object member order is preserved and numbers keep their literal text.
func Parse(data []byte) (jsonvalue.Value, error) {
	iter := api.BorrowIterator(data)
	defer api.ReturnIterator(iter)

	if iter.WhatIsNext() == jsoniter.InvalidValue {
		if iter.Error == io.EOF {
			return nil, errors.NewDocumentError("document is empty", errors.ErrMalformedDocument)
		}
		return nil, errors.NewDocumentError("invalid value at the document root", errors.ErrMalformedDocument)
	}
	p := &parser{}
	root := p.value(iter)
	if p.err != nil {
		return nil, p.err
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.NewDocumentError(iter.Error.Error(), errors.ErrMalformedDocument)
	}

	// Anything but whitespace after the root value is an error.
	if iter.WhatIsNext() != jsoniter.InvalidValue || iter.Error != io.EOF {
		return nil, errors.NewDocumentError("invalid trailing data after the root value", errors.ErrMalformedDocument)
	}

	// The iterator reads a bare null in key position as the empty key, so a
	// document with an empty key is checked against the strict grammar.
	if p.emptyKey && !json.Valid(data) {
		return nil, errors.NewDocumentError("object member name must be a string", errors.ErrMalformedDocument)
	}

	return root, nil
}

type parser struct {
	err      error
	emptyKey bool
}

func (p *parser) fail(iter *jsoniter.Iterator, err error) {
	if p.err == nil {
		p.err = err
	}
	if iter.Error == nil {
		iter.ReportError("parse", err.Error())
	}
}

func (p *parser) value(iter *jsoniter.Iterator) jsonvalue.Value {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		return p.object(iter)
	case jsoniter.ArrayValue:
		return p.array(iter)
	case jsoniter.StringValue:
		return jsonvalue.String(iter.ReadString())
	case jsoniter.NumberValue:
		literal := string(iter.ReadNumber())
		if !numberRegex.MatchString(literal) {
			p.fail(iter, errors.NewDocumentError(fmt.Sprintf("invalid number literal %q", literal), errors.ErrMalformedDocument))
			return nil
		}
		return jsonvalue.Number(literal)
	case jsoniter.BoolValue:
		return jsonvalue.Boolean(iter.ReadBool())
	case jsoniter.NilValue:
		iter.ReadNil()
		return jsonvalue.Null{}
	default:
		p.fail(iter, errors.NewDocumentError("unexpected character in value position", errors.ErrMalformedDocument))
		return nil
	}
}

func (p *parser) object(iter *jsoniter.Iterator) jsonvalue.Value {
	obj := jsonvalue.NewObject(0)
	var index map[string]int
	ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if key == "" {
			p.emptyKey = true
		}
		v := p.value(it)
		if p.err != nil || (it.Error != nil && it.Error != io.EOF) {
			return false
		}
		// Duplicate keys: last value wins, first position is kept.
		if i, seen := index[key]; seen {
			obj.Members[i].Value = v
			return true
		}
		if index == nil {
			index = make(map[string]int)
		}
		index[key] = len(obj.Members)
		obj.Members = append(obj.Members, jsonvalue.Member{Key: key, Value: v})
		return true
	})
	if !ok {
		p.syntax(iter)
		return nil
	}
	return obj
}

func (p *parser) array(iter *jsoniter.Iterator) jsonvalue.Value {
	arr := jsonvalue.Array{}
	ok := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v := p.value(it)
		if p.err != nil || (it.Error != nil && it.Error != io.EOF) {
			return false
		}
		arr = append(arr, v)
		return true
	})
	if !ok {
		p.syntax(iter)
		return nil
	}
	return arr
}

// syntax records the iterator's own error when no more specific one was set.
func (p *parser) syntax(iter *jsoniter.Iterator) {
	if p.err != nil {
		return
	}
	msg := "JSON syntax error"
	if iter.Error != nil && iter.Error != io.EOF {
		msg = iter.Error.Error()
	} else if iter.Error == io.EOF {
		msg = "unexpected end of document"
	}
	p.err = errors.NewDocumentError(msg, errors.ErrMalformedDocument)
}
