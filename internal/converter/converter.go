// Package converter maps JSON value trees to structured message trees and back.
package converter

import (
	"fmt"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/jsonvalue"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/mcncl/jsoncodec/internal/typetag"
)

// Converter holds the type-tag switches of one codec instance.
type Converter struct {
	// DecodeTypeInfo tags numbers and booleans on the way into the message tree.
	DecodeTypeInfo bool
	// EncodeTypeInfo reads tags back into numbers and booleans on the way out.
	EncodeTypeInfo bool
}

// ToMessage converts a parsed JSON value into a message tree value
func (c Converter) ToMessage(v jsonvalue.Value) (models.Value, error) {
	switch x := v.(type) {
	case *jsonvalue.Object:
		return c.ToMapping(x)
	case jsonvalue.Array:
		seq := make(models.Sequence, 0, len(x))
		for i, item := range x {
			converted, err := c.ToMessage(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, converted)
		}
		return seq, nil
	case jsonvalue.String:
		return models.Scalar(x), nil
	case jsonvalue.Number:
		if !c.DecodeTypeInfo {
			return models.Scalar(x), nil
		}
		tag, err := typetag.EncodeNumber(string(x))
		if err != nil {
			return nil, err
		}
		return models.Scalar(tag), nil
	case jsonvalue.Boolean:
		if !c.DecodeTypeInfo {
			if x {
				return models.Scalar("true"), nil
			}
			return models.Scalar("false"), nil
		}
		return models.Scalar(typetag.EncodeBoolean(bool(x))), nil
	case jsonvalue.Null:
		return models.Null{}, nil
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("unexpected JSON value of type %T", v), errors.ErrStructureMismatch)
	}
}

// ToMapping converts a JSON object into a Mapping keeping member order
func (c Converter) ToMapping(obj *jsonvalue.Object) (*models.Mapping, error) {
	m := models.NewMapping()
	if obj == nil {
		return m, nil
	}
	for _, member := range obj.Members {
		converted, err := c.ToMessage(member.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", member.Key, err)
		}
		m.Set(member.Key, converted)
	}
	return m, nil
}

// FromMessage converts a message tree value into a JSON value.
// A nil value and Null both become JSON null.
func (c Converter) FromMessage(v models.Value) (jsonvalue.Value, error) {
	switch x := v.(type) {
	case nil:
		return jsonvalue.Null{}, nil
	case models.Null:
		return jsonvalue.Null{}, nil
	case *models.Mapping:
		if x == nil {
			return jsonvalue.Null{}, nil
		}
		return c.FromMapping(x)
	case models.Sequence:
		arr := make(jsonvalue.Array, 0, len(x))
		for i, item := range x {
			converted, err := c.FromMessage(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr = append(arr, converted)
		}
		return arr, nil
	case models.Scalar:
		return c.fromScalar(x)
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("unexpected message value of type %T", v), errors.ErrStructureMismatch)
	}
}

// FromMapping converts a Mapping into a JSON object keeping field order
func (c Converter) FromMapping(m *models.Mapping) (*jsonvalue.Object, error) {
	obj := jsonvalue.NewObject(m.Len())
	var err error
	m.Range(func(key string, value models.Value) bool {
		var converted jsonvalue.Value
		converted, err = c.FromMessage(value)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
			return false
		}
		obj.Members = append(obj.Members, jsonvalue.Member{Key: key, Value: converted})
		return true
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (c Converter) fromScalar(s models.Scalar) (jsonvalue.Value, error) {
	if !c.EncodeTypeInfo {
		return jsonvalue.String(s), nil
	}
	tag, err := typetag.Parse(string(s))
	if err != nil {
		return nil, err
	}
	switch tag.Kind {
	case typetag.KindNumber:
		return jsonvalue.Number(tag.Text), nil
	case typetag.KindBoolean:
		return jsonvalue.Boolean(tag.Bool()), nil
	default:
		return jsonvalue.String(tag.Text), nil
	}
}
