// Package pipeline exposes the JSON codec as a message-group stage: raw
// payloads are decoded into structured messages and structured messages are
// encoded back into raw payloads.
//
// Messages whose declared protocol is neither blank nor "json" are passed
// through untouched, so groups may mix protocols. Every message is handled on
// its own; the first failing message stops Decode and Encode, and callers that
// want a different batch policy use DecodeMessage and EncodeMessage directly.
package pipeline

import (
	"fmt"

	"github.com/mcncl/jsoncodec/internal/codec"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"go.uber.org/zap"
)

// Protocol is the protocol identifier this codec owns
const Protocol = "json"

// Message type labels derived from the communication direction
const (
	MessageTypeIncoming = "Incoming"
	MessageTypeOutgoing = "Outgoing"
)

// Codec is the decode/encode stage
type Codec struct {
	body   *codec.Codec
	logger *zap.Logger
}

// Option configures a Codec
type Option func(*Codec)

// WithLogger sets the logger used for pass-through and failure reports
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a pipeline Codec for the given settings
func New(settings codec.Settings, opts ...Option) *Codec {
	c := &Codec{
		body:   codec.New(settings),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Body returns the payload codec used by this stage
func (c *Codec) Body() *codec.Codec {
	return c.body
}

// Applicable reports whether a message declaring protocol is handled by this codec
func Applicable(protocol string) bool {
	return protocol == "" || protocol == Protocol
}

// MessageType returns the label for a direction
func MessageType(d message.Direction) (string, error) {
	switch d {
	case message.DirectionFirst:
		return MessageTypeIncoming, nil
	case message.DirectionSecond:
		return MessageTypeOutgoing, nil
	default:
		return "", errors.NewDirectionError(fmt.Sprintf("unsupported message direction: %s", d), errors.ErrUnsupportedDirection)
	}
}

// Decode decodes every applicable raw message of the group.
func (c *Codec) Decode(group message.MessageGroup) (message.MessageGroup, error) {
	if !anyMessage(group, c.decodable) {
		return group, nil
	}
	out := message.MessageGroup{Messages: make([]message.AnyMessage, 0, len(group.Messages))}
	for i, m := range group.Messages {
		decoded, err := c.DecodeMessage(m)
		if err != nil {
			return message.MessageGroup{}, fmt.Errorf("message %d: %w", i, err)
		}
		out.Messages = append(out.Messages, decoded)
	}
	return out, nil
}

// Encode encodes every applicable parsed message of the group.
func (c *Codec) Encode(group message.MessageGroup) (message.MessageGroup, error) {
	if !anyMessage(group, c.encodable) {
		return group, nil
	}
	out := message.MessageGroup{Messages: make([]message.AnyMessage, 0, len(group.Messages))}
	for i, m := range group.Messages {
		encoded, err := c.EncodeMessage(m)
		if err != nil {
			return message.MessageGroup{}, fmt.Errorf("message %d: %w", i, err)
		}
		out.Messages = append(out.Messages, encoded)
	}
	return out, nil
}

// DecodeMessage decodes one message. Parsed messages and messages of another
// protocol are returned as they are.
func (c *Codec) DecodeMessage(m message.AnyMessage) (message.AnyMessage, error) {
	if !c.decodable(m) {
		c.logger.Debug("passing message through decode",
			zap.Bool("raw", m.IsRaw()),
			zap.String("protocol", m.Protocol()))
		return m, nil
	}
	parsed, err := c.DecodeRaw(m.Raw)
	if err != nil {
		c.logger.Warn("failed to decode message",
			zap.String("sessionAlias", m.Raw.ID.SessionAlias),
			zap.Int64("sequence", m.Raw.ID.Sequence),
			zap.Error(err))
		return message.AnyMessage{}, err
	}
	return message.AnyMessage{Parsed: parsed}, nil
}

// EncodeMessage encodes one message. Raw messages and messages of another
// protocol are returned as they are.
func (c *Codec) EncodeMessage(m message.AnyMessage) (message.AnyMessage, error) {
	if !c.encodable(m) {
		c.logger.Debug("passing message through encode",
			zap.Bool("parsed", m.IsParsed()),
			zap.String("protocol", m.Protocol()))
		return m, nil
	}
	raw, err := c.EncodeParsed(m.Parsed)
	if err != nil {
		c.logger.Warn("failed to encode message",
			zap.String("sessionAlias", m.Parsed.ID.SessionAlias),
			zap.Int64("sequence", m.Parsed.ID.Sequence),
			zap.Error(err))
		return message.AnyMessage{}, err
	}
	return message.AnyMessage{Raw: raw}, nil
}

// DecodeRaw turns a raw message into a parsed one without the applicability check
func (c *Codec) DecodeRaw(raw *message.RawMessage) (*message.ParsedMessage, error) {
	messageType, err := MessageType(raw.ID.Direction)
	if err != nil {
		return nil, err
	}
	body, err := c.body.Decode(raw.Body)
	if err != nil {
		return nil, err
	}
	return &message.ParsedMessage{
		ID:            message.CopyMessageID(raw.ID),
		ParentEventID: message.CopyEventID(raw.ParentEventID),
		Protocol:      Protocol,
		Type:          messageType,
		Properties:    message.CopyProperties(raw.Properties),
		Body:          body,
	}, nil
}

// EncodeParsed turns a parsed message into a raw one without the applicability check
func (c *Codec) EncodeParsed(parsed *message.ParsedMessage) (*message.RawMessage, error) {
	if _, err := MessageType(parsed.ID.Direction); err != nil {
		return nil, err
	}
	body, err := c.body.Encode(parsed.Body)
	if err != nil {
		return nil, err
	}
	return &message.RawMessage{
		ID:            message.CopyMessageID(parsed.ID),
		ParentEventID: message.CopyEventID(parsed.ParentEventID),
		Protocol:      Protocol,
		Properties:    message.CopyProperties(parsed.Properties),
		Body:          body,
	}, nil
}

func (c *Codec) decodable(m message.AnyMessage) bool {
	return m.Raw != nil && Applicable(m.Raw.Protocol)
}

func (c *Codec) encodable(m message.AnyMessage) bool {
	return m.Parsed != nil && Applicable(m.Parsed.Protocol)
}

func anyMessage(group message.MessageGroup, pred func(message.AnyMessage) bool) bool {
	for _, m := range group.Messages {
		if pred(m) {
			return true
		}
	}
	return false
}
