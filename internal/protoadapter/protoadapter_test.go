package protoadapter

import (
	"testing"

	"github.com/mcncl/jsoncodec/internal/codec"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestToStruct_DecodedBody(t *testing.T) {
	c := codec.New(codec.Settings{EncodeTypeInfo: true, DecodeTypeInfo: true})

	m, err := c.Decode([]byte(`{"b":[1,"x",null],"a":{"t":true}}`))
	require.NoError(t, err)
	s, err := ToStruct(m)
	require.NoError(t, err)

	list := s.Fields["b"].GetListValue().GetValues()
	require.Len(t, list, 3)
	assert.Equal(t, "number(1)", list[0].GetStringValue())
	assert.Equal(t, "x", list[1].GetStringValue())
	_, isNull := list[2].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
	assert.Equal(t, "boolean(true)", s.Fields["a"].GetStructValue().Fields["t"].GetStringValue())

	back, err := FromStruct(s)
	require.NoError(t, err)
	out, err := c.Encode(back)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"t":true},"b":[1,"x",null]}`, string(out))
}

func TestMarshalMapping_ArrayRoot(t *testing.T) {
	c := codec.New(codec.Settings{RootArrayField: "items"})

	m, err := c.Decode([]byte(`["a","b"]`))
	require.NoError(t, err)
	data, err := MarshalMapping(m)
	require.NoError(t, err)

	back, err := UnmarshalMapping(data)
	require.NoError(t, err)
	assert.True(t, models.Equal(m, back))

	out, err := c.Encode(back)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(out))
}

func TestMarshalMapping_Empty(t *testing.T) {
	data, err := MarshalMapping(models.NewMapping())
	require.NoError(t, err)
	assert.Empty(t, data)

	m, err := UnmarshalMapping(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestUnmarshalMapping_Errors(t *testing.T) {
	_, err := UnmarshalMapping([]byte{0xff, 0xff})
	assert.Error(t, err)

	data, err := proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{"n": structpb.NewNumberValue(1)}})
	require.NoError(t, err)
	_, err = UnmarshalMapping(data)
	assert.ErrorIs(t, err, errors.ErrStructureMismatch)
}

func TestFromStruct_NilValueIsNull(t *testing.T) {
	m, err := FromStruct(&structpb.Struct{Fields: map[string]*structpb.Value{"n": nil}})
	require.NoError(t, err)

	v, ok := m.Get("n")
	require.True(t, ok)
	assert.True(t, models.IsNull(v))
}

func TestFromStruct_RejectsTypedLeaves(t *testing.T) {
	for name, value := range map[string]*structpb.Value{
		"number": structpb.NewNumberValue(1),
		"bool":   structpb.NewBoolValue(true),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromStruct(&structpb.Struct{Fields: map[string]*structpb.Value{"v": value}})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrStructureMismatch)
		})
	}
}

func TestFromStruct_SortsKeys(t *testing.T) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"c": structpb.NewStringValue("3"),
		"a": structpb.NewStringValue("1"),
		"b": structpb.NewStringValue("2"),
	}}

	m, err := FromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestToStruct_NullForms(t *testing.T) {
	m := models.NewMapping()
	m.Set("explicit", models.Null{})
	m.Set("missing", nil)

	s, err := ToStruct(m)
	require.NoError(t, err)
	for _, key := range []string{"explicit", "missing"} {
		_, isNull := s.Fields[key].GetKind().(*structpb.Value_NullValue)
		assert.True(t, isNull, key)
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	m := models.NewMapping()
	m.Set("a", models.Sequence{models.Scalar("number(1)")})
	s, err := ToStruct(m)
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, proto.Equal(s, back))

	_, err = Unmarshal([]byte{0xff, 0xff})
	assert.Error(t, err)
}
