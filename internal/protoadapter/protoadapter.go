// Package protoadapter carries message bodies as protobuf Struct values.
//
// Struct keys are unordered, so bodies read from a Struct are built in sorted
// key order. Leaves must be strings or null; tagged numbers and booleans stay
// textual exactly as in the native tree.
package protoadapter

import (
	"fmt"
	"sort"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MarshalMapping writes a native body as a binary Struct
func MarshalMapping(m *models.Mapping) ([]byte, error) {
	s, err := ToStruct(m)
	if err != nil {
		return nil, err
	}
	return Marshal(s)
}

// UnmarshalMapping reads a binary Struct as a native body
func UnmarshalMapping(data []byte) (*models.Mapping, error) {
	s, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return FromStruct(s)
}

// Marshal encodes a Struct body in the protobuf binary format
func Marshal(s *structpb.Struct) ([]byte, error) {
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, errors.NewOutputError("failed to marshal struct body", err)
	}
	return data, nil
}

// Unmarshal decodes a protobuf binary Struct body
func Unmarshal(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, errors.NewInputError("failed to unmarshal struct body", err)
	}
	return s, nil
}

// ToStruct converts a native mapping to a Struct
func ToStruct(m *models.Mapping) (*structpb.Struct, error) {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, m.Len())}
	var err error
	m.Range(func(key string, value models.Value) bool {
		var v *structpb.Value
		v, err = toValue(value)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
			return false
		}
		s.Fields[key] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func toValue(v models.Value) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil, models.Null:
		return structpb.NewNullValue(), nil
	case *models.Mapping:
		if x == nil {
			return structpb.NewNullValue(), nil
		}
		s, err := ToStruct(x)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	case models.Sequence:
		list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(x))}
		for i, item := range x {
			iv, err := toValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list.Values = append(list.Values, iv)
		}
		return structpb.NewListValue(list), nil
	case models.Scalar:
		return structpb.NewStringValue(string(x)), nil
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("unsupported message value %T", v), errors.ErrStructureMismatch)
	}
}

// FromStruct converts a Struct to a native mapping. A nil Struct is an empty mapping.
func FromStruct(s *structpb.Struct) (*models.Mapping, error) {
	m := models.NewMapping()
	keys := make([]string, 0, len(s.GetFields()))
	for k := range s.GetFields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := fromValue(s.GetFields()[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m.Set(k, v)
	}
	return m, nil
}

func fromValue(v *structpb.Value) (models.Value, error) {
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return models.Null{}, nil
	case *structpb.Value_StructValue:
		return FromStruct(k.StructValue)
	case *structpb.Value_ListValue:
		values := k.ListValue.GetValues()
		seq := make(models.Sequence, 0, len(values))
		for i, item := range values {
			iv, err := fromValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, iv)
		}
		return seq, nil
	case *structpb.Value_StringValue:
		return models.Scalar(k.StringValue), nil
	case *structpb.Value_NumberValue:
		return nil, errors.NewStructureError("number leaves are not allowed, numbers travel as tagged strings", errors.ErrStructureMismatch)
	case *structpb.Value_BoolValue:
		return nil, errors.NewStructureError("bool leaves are not allowed, booleans travel as tagged strings", errors.ErrStructureMismatch)
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("unsupported struct value %T", k), errors.ErrStructureMismatch)
	}
}
