package converter

import (
	"testing"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/formatter"
	"github.com/mcncl/jsoncodec/internal/jsonvalue"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/mcncl/jsoncodec/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMapping(t *testing.T, c Converter, input string) *models.Mapping {
	t.Helper()
	root, err := parser.Parse([]byte(input))
	require.NoError(t, err)
	obj, ok := root.(*jsonvalue.Object)
	require.True(t, ok)
	m, err := c.ToMapping(obj)
	require.NoError(t, err)
	return m
}

func scalar(t *testing.T, m *models.Mapping, key string) models.Scalar {
	t.Helper()
	v, ok := m.Get(key)
	require.True(t, ok, "missing field %s", key)
	s, ok := v.(models.Scalar)
	require.True(t, ok, "field %s is %T", key, v)
	return s
}

func TestToMapping_WithTypeInfo(t *testing.T) {
	input := `{
		"stringField": "value",
		"intField": 123,
		"decimalField": 123.100000000000000000,
		"object": {"objectField": "objectFieldValue"},
		"primitiveList": [1, 2, 3, 4],
		"objectList": [{"objectField": 123}, {"anotherObjectField": true}],
		"nothing": null
	}`
	m := toMapping(t, Converter{DecodeTypeInfo: true}, input)

	assert.Equal(t, []string{"stringField", "intField", "decimalField", "object", "primitiveList", "objectList", "nothing"}, m.Keys())
	assert.Equal(t, models.Scalar("value"), scalar(t, m, "stringField"))
	assert.Equal(t, models.Scalar("number(123)"), scalar(t, m, "intField"))
	assert.Equal(t, models.Scalar("number(123.1)"), scalar(t, m, "decimalField"))

	object, _ := m.Get("object")
	assert.Equal(t, models.Scalar("objectFieldValue"), scalar(t, object.(*models.Mapping), "objectField"))

	list, _ := m.Get("primitiveList")
	assert.Equal(t, models.Sequence{
		models.Scalar("number(1)"), models.Scalar("number(2)"), models.Scalar("number(3)"), models.Scalar("number(4)"),
	}, list)

	objectList, _ := m.Get("objectList")
	second := objectList.(models.Sequence)[1].(*models.Mapping)
	assert.Equal(t, models.Scalar("boolean(true)"), scalar(t, second, "anotherObjectField"))

	nothing, _ := m.Get("nothing")
	assert.Equal(t, models.Null{}, nothing)
}

func TestToMapping_WithoutTypeInfo(t *testing.T) {
	m := toMapping(t, Converter{}, `{"i": 1, "d": 1.50, "b": false, "s": "x"}`)

	assert.Equal(t, models.Scalar("1"), scalar(t, m, "i"))
	assert.Equal(t, models.Scalar("1.50"), scalar(t, m, "d"))
	assert.Equal(t, models.Scalar("false"), scalar(t, m, "b"))
	assert.Equal(t, models.Scalar("x"), scalar(t, m, "s"))
}

func TestFromMapping_WithTypeInfo(t *testing.T) {
	m := models.NewMapping()
	m.Set("stringField", models.Scalar("stringValue"))
	m.Set("numberField", models.Scalar("number(123)"))
	m.Set("booleanValue", models.Scalar("boolean(true)"))
	object := models.NewMapping()
	object.Set("objectField", models.Scalar("objectValue"))
	m.Set("object", object)
	m.Set("listOfPrimitives", models.Sequence{models.Scalar("number(1.1)"), models.Scalar("number(2.2)")})
	m.Set("explicitNull", models.Null{})
	m.Set("nilNull", nil)

	obj, err := Converter{EncodeTypeInfo: true}.FromMapping(m)
	require.NoError(t, err)

	out, err := formatter.NewFormatter().Format(obj)
	require.NoError(t, err)
	assert.Equal(t,
		`{"stringField":"stringValue","numberField":123,"booleanValue":true,"object":{"objectField":"objectValue"},"listOfPrimitives":[1.1,2.2],"explicitNull":null,"nilNull":null}`,
		string(out))
}

func TestFromMapping_WithoutTypeInfo(t *testing.T) {
	m := models.NewMapping()
	m.Set("n", models.Scalar("number(123)"))
	m.Set("b", models.Scalar("boolean(true)"))
	m.Set("bad", models.Scalar("number(abc)"))

	obj, err := Converter{}.FromMapping(m)
	require.NoError(t, err)

	out, err := formatter.NewFormatter().Format(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"n":"number(123)","b":"boolean(true)","bad":"number(abc)"}`, string(out))
}

func TestFromMapping_MalformedTag(t *testing.T) {
	inner := models.NewMapping()
	inner.Set("value", models.Scalar("number(abc)"))
	m := models.NewMapping()
	m.Set("list", models.Sequence{inner})

	_, err := Converter{EncodeTypeInfo: true}.FromMapping(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedTypeTag)
	assert.Contains(t, err.Error(), "list: [0]: value:")
}

func TestFromMessage_TagLookalikesStayStrings(t *testing.T) {
	v, err := Converter{EncodeTypeInfo: true}.FromMessage(models.Scalar("number(1"))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("number(1"), v)

	v, err = Converter{EncodeTypeInfo: true}.FromMessage(models.Scalar("Boolean(true)"))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("Boolean(true)"), v)
}

func TestRoundTrip_WithTypeInfo(t *testing.T) {
	c := Converter{DecodeTypeInfo: true, EncodeTypeInfo: true}
	input := `{"a":1,"b":[true,false,null,"s",{"c":-2.5}],"d":{},"e":[],"f":123.1}`

	m := toMapping(t, c, input)
	obj, err := c.FromMapping(m)
	require.NoError(t, err)
	out, err := formatter.NewFormatter().Format(obj)
	require.NoError(t, err)

	assert.Equal(t, input, string(out))
}

func TestRoundTrip_WithoutTypeInfoIsIdempotent(t *testing.T) {
	c := Converter{}
	first := toMapping(t, c, `{"a":1,"b":[true,null],"c":"x"}`)

	obj, err := c.FromMapping(first)
	require.NoError(t, err)
	out, err := formatter.NewFormatter().Format(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":["true",null],"c":"x"}`, string(out))

	second := toMapping(t, c, string(out))
	assert.True(t, models.Equal(first, second))
}

func TestToMessage_UnknownValue(t *testing.T) {
	_, err := Converter{}.ToMessage(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStructureMismatch)
}
