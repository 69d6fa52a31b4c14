// Package message defines the envelope the codec receives from and returns to
// the hosting pipeline.
package message

import (
	"fmt"
	"time"

	"github.com/mcncl/jsoncodec/internal/models"
)

// Direction is the communication direction of a message within its session
type Direction int

const (
	// DirectionUnspecified is the invalid placeholder.
	DirectionUnspecified Direction = iota
	// DirectionFirst marks messages received from the remote side.
	DirectionFirst
	// DirectionSecond marks messages sent to the remote side.
	DirectionSecond
)

func (d Direction) String() string {
	switch d {
	case DirectionUnspecified:
		return "UNSPECIFIED"
	case DirectionFirst:
		return "FIRST"
	case DirectionSecond:
		return "SECOND"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Valid reports whether d is one of the two real directions
func (d Direction) Valid() bool {
	return d == DirectionFirst || d == DirectionSecond
}

// MessageID identifies a message within a session
type MessageID struct {
	SessionAlias string    `json:"sessionAlias"`
	Direction    Direction `json:"direction"`
	Sequence     int64     `json:"sequence"`
	Subsequence  []int     `json:"subsequence,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventID references the event a message belongs to
type EventID struct {
	ID        string    `json:"id"`
	Book      string    `json:"book,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RawMessage carries an undecoded payload
type RawMessage struct {
	ID            MessageID
	ParentEventID *EventID
	Protocol      string
	Properties    map[string]string
	Body          []byte
}

// ParsedMessage carries a structured body
type ParsedMessage struct {
	ID            MessageID
	ParentEventID *EventID
	Protocol      string
	Type          string
	Properties    map[string]string
	Body          *models.Mapping
}

// AnyMessage holds exactly one of Raw or Parsed
type AnyMessage struct {
	Raw    *RawMessage
	Parsed *ParsedMessage
}

// IsRaw reports whether the message carries a raw payload
func (m AnyMessage) IsRaw() bool {
	return m.Raw != nil
}

// IsParsed reports whether the message carries a structured body
func (m AnyMessage) IsParsed() bool {
	return m.Parsed != nil
}

// Protocol returns the declared protocol of whichever message is set
func (m AnyMessage) Protocol() string {
	switch {
	case m.Raw != nil:
		return m.Raw.Protocol
	case m.Parsed != nil:
		return m.Parsed.Protocol
	default:
		return ""
	}
}

// MessageGroup is an ordered batch of messages handled together
type MessageGroup struct {
	Messages []AnyMessage
}

// CopyProperties returns an independent copy of a property map
func CopyProperties(properties map[string]string) map[string]string {
	if len(properties) == 0 {
		return nil
	}
	out := make(map[string]string, len(properties))
	for k, v := range properties {
		out[k] = v
	}
	return out
}

// CopyEventID returns an independent copy of an event reference
func CopyEventID(id *EventID) *EventID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// CopyMessageID returns a MessageID sharing no slices with id
func CopyMessageID(id MessageID) MessageID {
	if id.Subsequence != nil {
		id.Subsequence = append([]int(nil), id.Subsequence...)
	}
	return id
}
