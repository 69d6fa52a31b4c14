// Package wire serializes message groups for transport between pipeline
// processes. Two binary formats are available: MessagePack and CBOR. Both
// share the same document layout, so a group written in one format carries
// exactly the same information as in the other.
package wire

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/mcncl/jsoncodec/internal/models"
)

// Format encodes message groups to bytes and back
type Format interface {
	Name() string
	Marshal(group message.MessageGroup) ([]byte, error)
	Unmarshal(data []byte) (message.MessageGroup, error)
}

// Format names
const (
	FormatMsgpack = "msgpack"
	FormatCBOR    = "cbor"
)

// Lookup returns the format registered under name
func Lookup(name string) (Format, error) {
	switch strings.ToLower(name) {
	case FormatMsgpack, "":
		return Msgpack{}, nil
	case FormatCBOR:
		return CBOR{}, nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown wire format %q (want msgpack or cbor)", name), errors.ErrInvalidConfig)
	}
}

// Node kinds
const (
	kindMapping  = "map"
	kindSequence = "seq"
	kindScalar   = "str"
	kindNull     = "null"
)

type groupDoc struct {
	Messages []messageDoc `json:"messages"`
}

type messageDoc struct {
	Raw    *rawDoc    `json:"raw,omitempty"`
	Parsed *parsedDoc `json:"parsed,omitempty"`
}

type idDoc struct {
	SessionAlias string `json:"sessionAlias"`
	Direction    int    `json:"direction"`
	Sequence     int64  `json:"sequence"`
	Subsequence  []int  `json:"subsequence,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

type eventDoc struct {
	ID        string `json:"id"`
	Book      string `json:"book,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type rawDoc struct {
	ID            idDoc             `json:"id"`
	ParentEventID *eventDoc         `json:"parentEventId,omitempty"`
	Protocol      string            `json:"protocol,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Body          []byte            `json:"body,omitempty"`
}

type parsedDoc struct {
	ID            idDoc             `json:"id"`
	ParentEventID *eventDoc         `json:"parentEventId,omitempty"`
	Protocol      string            `json:"protocol,omitempty"`
	Type          string            `json:"type,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Body          *nodeDoc          `json:"body,omitempty"`
}

// nodeDoc holds one tree value. Mapping keys and values are parallel slices
// so field order survives formats whose maps are unordered.
type nodeDoc struct {
	Kind   string     `json:"k"`
	Text   string     `json:"t,omitempty"`
	Keys   []string   `json:"keys,omitempty"`
	Values []*nodeDoc `json:"values,omitempty"`
}

func toDoc(group message.MessageGroup) (groupDoc, error) {
	doc := groupDoc{Messages: make([]messageDoc, 0, len(group.Messages))}
	for i, m := range group.Messages {
		switch {
		case m.Raw != nil:
			doc.Messages = append(doc.Messages, messageDoc{Raw: &rawDoc{
				ID:            toIDDoc(m.Raw.ID),
				ParentEventID: toEventDoc(m.Raw.ParentEventID),
				Protocol:      m.Raw.Protocol,
				Properties:    m.Raw.Properties,
				Body:          m.Raw.Body,
			}})
		case m.Parsed != nil:
			doc.Messages = append(doc.Messages, messageDoc{Parsed: &parsedDoc{
				ID:            toIDDoc(m.Parsed.ID),
				ParentEventID: toEventDoc(m.Parsed.ParentEventID),
				Protocol:      m.Parsed.Protocol,
				Type:          m.Parsed.Type,
				Properties:    m.Parsed.Properties,
				Body:          toNodeDoc(m.Parsed.Body),
			}})
		default:
			return groupDoc{}, errors.NewStructureError(fmt.Sprintf("message %d carries neither a raw nor a parsed body", i), errors.ErrStructureMismatch)
		}
	}
	return doc, nil
}

func fromDoc(doc groupDoc) (message.MessageGroup, error) {
	group := message.MessageGroup{Messages: make([]message.AnyMessage, 0, len(doc.Messages))}
	for i, m := range doc.Messages {
		switch {
		case m.Raw != nil && m.Parsed == nil:
			group.Messages = append(group.Messages, message.AnyMessage{Raw: &message.RawMessage{
				ID:            fromIDDoc(m.Raw.ID),
				ParentEventID: fromEventDoc(m.Raw.ParentEventID),
				Protocol:      m.Raw.Protocol,
				Properties:    m.Raw.Properties,
				Body:          m.Raw.Body,
			}})
		case m.Parsed != nil && m.Raw == nil:
			body, err := fromNodeDoc(m.Parsed.Body)
			if err != nil {
				return message.MessageGroup{}, fmt.Errorf("message %d: %w", i, err)
			}
			mapping, ok := body.(*models.Mapping)
			if !ok {
				if !models.IsNull(body) {
					return message.MessageGroup{}, errors.NewStructureError(fmt.Sprintf("message %d: parsed body must be a mapping", i), errors.ErrStructureMismatch)
				}
				mapping = models.NewMapping()
			}
			group.Messages = append(group.Messages, message.AnyMessage{Parsed: &message.ParsedMessage{
				ID:            fromIDDoc(m.Parsed.ID),
				ParentEventID: fromEventDoc(m.Parsed.ParentEventID),
				Protocol:      m.Parsed.Protocol,
				Type:          m.Parsed.Type,
				Properties:    m.Parsed.Properties,
				Body:          mapping,
			}})
		default:
			return message.MessageGroup{}, errors.NewStructureError(fmt.Sprintf("message %d must carry exactly one of raw or parsed", i), errors.ErrStructureMismatch)
		}
	}
	return group, nil
}

func toIDDoc(id message.MessageID) idDoc {
	return idDoc{
		SessionAlias: id.SessionAlias,
		Direction:    int(id.Direction),
		Sequence:     id.Sequence,
		Subsequence:  id.Subsequence,
		Timestamp:    unixNanos(id.Timestamp),
	}
}

func fromIDDoc(id idDoc) message.MessageID {
	return message.MessageID{
		SessionAlias: id.SessionAlias,
		Direction:    message.Direction(id.Direction),
		Sequence:     id.Sequence,
		Subsequence:  id.Subsequence,
		Timestamp:    fromUnixNanos(id.Timestamp),
	}
}

func toEventDoc(id *message.EventID) *eventDoc {
	if id == nil {
		return nil
	}
	return &eventDoc{ID: id.ID, Book: id.Book, Scope: id.Scope, Timestamp: unixNanos(id.Timestamp)}
}

func fromEventDoc(id *eventDoc) *message.EventID {
	if id == nil {
		return nil
	}
	return &message.EventID{ID: id.ID, Book: id.Book, Scope: id.Scope, Timestamp: fromUnixNanos(id.Timestamp)}
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func toNodeDoc(v models.Value) *nodeDoc {
	switch x := v.(type) {
	case *models.Mapping:
		if x == nil {
			return &nodeDoc{Kind: kindNull}
		}
		n := &nodeDoc{Kind: kindMapping, Keys: make([]string, 0, x.Len()), Values: make([]*nodeDoc, 0, x.Len())}
		x.Range(func(key string, value models.Value) bool {
			n.Keys = append(n.Keys, key)
			n.Values = append(n.Values, toNodeDoc(value))
			return true
		})
		return n
	case models.Sequence:
		n := &nodeDoc{Kind: kindSequence, Values: make([]*nodeDoc, 0, len(x))}
		for _, item := range x {
			n.Values = append(n.Values, toNodeDoc(item))
		}
		return n
	case models.Scalar:
		return &nodeDoc{Kind: kindScalar, Text: string(x)}
	default:
		return &nodeDoc{Kind: kindNull}
	}
}

func fromNodeDoc(n *nodeDoc) (models.Value, error) {
	if n == nil {
		return models.Null{}, nil
	}
	switch n.Kind {
	case kindMapping:
		if len(n.Keys) != len(n.Values) {
			return nil, errors.NewStructureError(fmt.Sprintf("mapping has %d keys but %d values", len(n.Keys), len(n.Values)), errors.ErrStructureMismatch)
		}
		m := models.NewMapping()
		for i, key := range n.Keys {
			v, err := fromNodeDoc(n.Values[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, v)
		}
		return m, nil
	case kindSequence:
		seq := make(models.Sequence, 0, len(n.Values))
		for i, item := range n.Values {
			v, err := fromNodeDoc(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, v)
		}
		return seq, nil
	case kindScalar:
		return models.Scalar(n.Text), nil
	case kindNull:
		return models.Null{}, nil
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("unknown node kind %q", n.Kind), errors.ErrStructureMismatch)
	}
}
