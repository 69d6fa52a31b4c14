package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcncl/jsoncodec/internal/config"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/mcncl/jsoncodec/internal/protoadapter"
	"github.com/mcncl/jsoncodec/internal/treeyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func testContext(input string, mutate func(*config.Config)) (*Context, *bytes.Buffer) {
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	out := &bytes.Buffer{}
	return &Context{
		Config: cfg,
		Logger: zap.NewNop(),
		Stdin:  strings.NewReader(input),
		Stdout: out,
	}, out
}

func typeInfo(cfg *config.Config) {
	cfg.Codec.EncodeTypeInfo = true
	cfg.Codec.DecodeTypeInfo = true
}

func TestDecode_PrintsTree(t *testing.T) {
	ctx, out := testContext(`{"name": "John", "age": 30, "active": true}`, typeInfo)

	err := (&DecodeCmd{Direction: "first", SessionAlias: "cli"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "name: John\nage: number(30)\nactive: boolean(true)\n", out.String())
}

func TestDecode_WithoutTypeInfo(t *testing.T) {
	ctx, out := testContext(`{"age": 30, "active": true}`, nil)

	err := (&DecodeCmd{Direction: "first"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "age: \"30\"\nactive: \"true\"\n", out.String())
}

func TestDecode_Envelope(t *testing.T) {
	ctx, out := testContext(`{"a": 1}`, typeInfo)

	err := (&DecodeCmd{Envelope: true, Direction: "second", SessionAlias: "session"}).Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sessionAlias: session")
	assert.Contains(t, out.String(), "direction: SECOND")
	assert.Contains(t, out.String(), "protocol: json")
	assert.Contains(t, out.String(), "type: Outgoing")
	assert.Contains(t, out.String(), "a: number(1)")
}

func TestDecode_ArrayRoot(t *testing.T) {
	ctx, _ := testContext(`[1, 2]`, nil)
	err := (&DecodeCmd{Direction: "first"}).Run(ctx)
	assert.ErrorIs(t, err, errors.ErrArrayRootNotAllowed)

	ctx, out := testContext(`[1, 2]`, func(c *config.Config) { c.Codec.RootArrayField = "items" })
	err = (&DecodeCmd{Direction: "first"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "items:\n  - \"1\"\n  - \"2\"\n", out.String())
}

func TestDecode_MalformedInput(t *testing.T) {
	ctx, _ := testContext(`"text"`, nil)

	err := (&DecodeCmd{Direction: "first"}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedDocument)
	assert.Contains(t, errors.UserFriendlyError(err), "JSON document error")
}

func TestDecode_FileInputAndOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.json")
	output := filepath.Join(dir, "output.yaml")
	require.NoError(t, os.WriteFile(input, []byte(`{"id": "x"}`), 0o644))

	ctx, stdout := testContext("", nil)
	err := (&DecodeCmd{Input: input, Output: output, Direction: "first"}).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "id: x\n", string(written))
}

func TestDecode_MissingFile(t *testing.T) {
	ctx, _ := testContext("", nil)

	err := (&DecodeCmd{Input: "/non/existent/file.json", Direction: "first"}).Run(ctx)
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

func TestEncode_PrintsJSON(t *testing.T) {
	ctx, out := testContext("name: John\nage: number(30)\nactive: boolean(true)\ntags:\n  - a\n  - null\n", typeInfo)

	err := (&EncodeCmd{Direction: "second"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"John","age":30,"active":true,"tags":["a",null]}`+"\n", out.String())
}

func TestEncode_Pretty(t *testing.T) {
	ctx, out := testContext("a:\n  b: number(1.50)\n", typeInfo)

	err := (&EncodeCmd{Pretty: true, Indent: 2, Direction: "second"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": {\n    \"b\": 1.5\n  }\n}\n", out.String())
}

func TestEncode_EmptyTree(t *testing.T) {
	ctx, out := testContext("", typeInfo)

	err := (&EncodeCmd{Direction: "second"}).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestEncode_MalformedTag(t *testing.T) {
	ctx, _ := testContext("value: number(abc)\n", typeInfo)

	err := (&EncodeCmd{Direction: "second"}).Run(ctx)
	assert.ErrorIs(t, err, errors.ErrMalformedTypeTag)
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	doc := `{"id":123456789012345678901234567890,"price":0.10,"items":[{"ok":false}],"none":null}`
	ctx, decoded := testContext(doc, typeInfo)
	require.NoError(t, (&DecodeCmd{Direction: "first"}).Run(ctx))

	ctx, encoded := testContext(decoded.String(), typeInfo)
	require.NoError(t, (&EncodeCmd{Direction: "second"}).Run(ctx))
	assert.Equal(t, `{"id":123456789012345678901234567890,"price":0.1,"items":[{"ok":false}],"none":null}`+"\n", encoded.String())
}

func TestDecodeEncode_RoundTripControlCharacters(t *testing.T) {
	doc := `{"j":"\n","k":" x","l":"true","m":"~","n":"","o":"a\tb\r\n"}`
	ctx, decoded := testContext(doc, typeInfo)
	require.NoError(t, (&DecodeCmd{Direction: "first"}).Run(ctx))

	ctx, encoded := testContext(decoded.String(), typeInfo)
	require.NoError(t, (&EncodeCmd{Direction: "second"}).Run(ctx))
	assert.Equal(t, doc+"\n", encoded.String())
}

func TestDecodeEncode_ProtoBody(t *testing.T) {
	doc := `{"b":[1,"x",null],"a":{"t":true}}`
	ctx, decoded := testContext(doc, typeInfo)
	require.NoError(t, (&DecodeCmd{Direction: "first", BodyFormat: BodyFormatProto}).Run(ctx))

	body, err := protoadapter.UnmarshalMapping(decoded.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, body.Keys())
	a, _ := body.Get("a")
	flag, _ := a.(*models.Mapping).Get("t")
	assert.Equal(t, models.Scalar("boolean(true)"), flag)

	ctx, encoded := testContext(decoded.String(), typeInfo)
	require.NoError(t, (&EncodeCmd{Direction: "second", BodyFormat: BodyFormatProto}).Run(ctx))
	assert.Equal(t, `{"a":{"t":true},"b":[1,"x",null]}`+"\n", encoded.String())
}

func TestDecode_ProtoBodyRejectsEnvelope(t *testing.T) {
	ctx, _ := testContext(`{"a":1}`, nil)

	err := (&DecodeCmd{Direction: "first", BodyFormat: BodyFormatProto, Envelope: true}).Run(ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestEncode_ProtoBodyRejectsTypedLeaves(t *testing.T) {
	data, err := proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{"n": structpb.NewNumberValue(1)}})
	require.NoError(t, err)

	ctx, _ := testContext(string(data), typeInfo)
	err = (&EncodeCmd{Direction: "second", BodyFormat: BodyFormatProto}).Run(ctx)
	assert.ErrorIs(t, err, errors.ErrStructureMismatch)
}

func TestSamples_DecodeMatchesTree(t *testing.T) {
	doc, err := os.ReadFile(filepath.Join("testdata", "samples", "user.json"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "samples", "user.yaml"))
	require.NoError(t, err)

	ctx, out := testContext(string(doc), typeInfo)
	require.NoError(t, (&DecodeCmd{Direction: "first"}).Run(ctx))

	got, err := treeyaml.Unmarshal(out.Bytes())
	require.NoError(t, err)
	expected, err := treeyaml.Unmarshal(want)
	require.NoError(t, err)
	assert.True(t, models.Equal(expected, got))
	assert.Equal(t, expected.Keys(), got.Keys())
}

func TestSamples_EncodeTree(t *testing.T) {
	tree, err := os.ReadFile(filepath.Join("testdata", "samples", "user.yaml"))
	require.NoError(t, err)

	ctx, out := testContext(string(tree), typeInfo)
	require.NoError(t, (&EncodeCmd{Direction: "second"}).Run(ctx))
	assert.Equal(t,
		`{"user":{"id":1024,"name":"Jane Doe","email":"jane@example.com","active":true,`+
			`"created_at":"2024-03-01T09:30:00Z","roles":["admin","editor"],"profile":{"bio":null,"location":"Lisbon"},`+
			`"stats":{"logins":42,"score":98.5,"balance":12345678901234567890.1}}}`+"\n",
		out.String())
}
