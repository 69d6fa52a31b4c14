package wire

import (
	"bytes"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is the MessagePack wire format
type Msgpack struct{}

var _ Format = Msgpack{}

func (Msgpack) Name() string { return FormatMsgpack }

// Marshal encodes a group as MessagePack
func (Msgpack) Marshal(group message.MessageGroup) ([]byte, error) {
	doc, err := toDoc(group)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(&doc); err != nil {
		return nil, errors.NewOutputError("failed to encode msgpack group", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a MessagePack group
func (Msgpack) Unmarshal(data []byte) (message.MessageGroup, error) {
	var doc groupDoc
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&doc); err != nil {
		return message.MessageGroup{}, errors.NewInputError("failed to decode msgpack group", err)
	}
	return fromDoc(doc)
}
