package wire

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
)

// Core deterministic encoding: the same group always produces the same bytes.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR is the CBOR wire format
type CBOR struct{}

var _ Format = CBOR{}

func (CBOR) Name() string { return FormatCBOR }

// Marshal encodes a group as CBOR
func (CBOR) Marshal(group message.MessageGroup) ([]byte, error) {
	doc, err := toDoc(group)
	if err != nil {
		return nil, err
	}
	data, err := cborEnc.Marshal(&doc)
	if err != nil {
		return nil, errors.NewOutputError("failed to encode cbor group", err)
	}
	return data, nil
}

// Unmarshal decodes a CBOR group
func (CBOR) Unmarshal(data []byte) (message.MessageGroup, error) {
	var doc groupDoc
	if err := cborDec.Unmarshal(data, &doc); err != nil {
		return message.MessageGroup{}, errors.NewInputError("failed to decode cbor group", err)
	}
	return fromDoc(doc)
}
