// Package treeyaml reads and writes structured message trees as YAML.
//
// Leaves are always strings or null. Strings that YAML would resolve to
// another type ("true", "1", "null") are quoted on output, and unquoted
// YAML scalars are read back as their text, so a tree survives the trip.
package treeyaml

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/mcncl/jsoncodec/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	strTag  = "!!str"
	nullTag = "!!null"
)

// Marshal writes a mapping as a YAML document
func Marshal(m *models.Mapping) ([]byte, error) {
	return encode(Node(m))
}

// MarshalMessage writes a parsed message with its envelope metadata
func MarshalMessage(p *message.ParsedMessage) ([]byte, error) {
	root := mappingNode()

	id := mappingNode()
	addPair(id, "sessionAlias", stringNode(p.ID.SessionAlias))
	addPair(id, "direction", stringNode(p.ID.Direction.String()))
	addPair(id, "sequence", stringNode(strconv.FormatInt(p.ID.Sequence, 10)))
	if len(p.ID.Subsequence) > 0 {
		sub := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, s := range p.ID.Subsequence {
			sub.Content = append(sub.Content, stringNode(strconv.Itoa(s)))
		}
		addPair(id, "subsequence", sub)
	}
	if !p.ID.Timestamp.IsZero() {
		addPair(id, "timestamp", stringNode(p.ID.Timestamp.UTC().Format(time.RFC3339Nano)))
	}
	addPair(root, "id", id)

	if p.ParentEventID != nil {
		event := mappingNode()
		addPair(event, "id", stringNode(p.ParentEventID.ID))
		if p.ParentEventID.Book != "" {
			addPair(event, "book", stringNode(p.ParentEventID.Book))
		}
		if p.ParentEventID.Scope != "" {
			addPair(event, "scope", stringNode(p.ParentEventID.Scope))
		}
		addPair(root, "parentEventId", event)
	}

	addPair(root, "protocol", stringNode(p.Protocol))
	addPair(root, "type", stringNode(p.Type))

	if len(p.Properties) > 0 {
		keys := make([]string, 0, len(p.Properties))
		for k := range p.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		props := mappingNode()
		for _, k := range keys {
			addPair(props, k, stringNode(p.Properties[k]))
		}
		addPair(root, "properties", props)
	}

	addPair(root, "body", Node(p.Body))
	return encode(root)
}

// Node builds the YAML node for a message value
func Node(v models.Value) *yaml.Node {
	switch x := v.(type) {
	case *models.Mapping:
		if x == nil {
			return nullNode()
		}
		n := mappingNode()
		x.Range(func(key string, value models.Value) bool {
			addPair(n, key, Node(value))
			return true
		})
		return n
	case models.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x {
			n.Content = append(n.Content, Node(item))
		}
		return n
	case models.Scalar:
		return stringNode(string(x))
	default:
		return nullNode()
	}
}

// Unmarshal reads a YAML document into a mapping. An empty document gives an
// empty mapping; any other non-mapping root is an error.
func Unmarshal(data []byte) (*models.Mapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewInputError("failed to parse YAML tree", err)
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return models.NewMapping(), nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		root = root.Content[0]
	}
	root = resolve(root)
	if root.Kind == yaml.ScalarNode && root.ShortTag() == nullTag {
		return models.NewMapping(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.NewStructureError(fmt.Sprintf("line %d: the tree root must be a mapping", root.Line), errors.ErrStructureMismatch)
	}

	v, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	return v.(*models.Mapping), nil
}

func fromNode(n *yaml.Node) (models.Value, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		m := models.NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := resolve(n.Content[i])
			if key.Kind != yaml.ScalarNode {
				return nil, errors.NewStructureError(fmt.Sprintf("line %d: mapping keys must be scalars", key.Line), errors.ErrStructureMismatch)
			}
			value, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key.Value, err)
			}
			m.Set(key.Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make(models.Sequence, 0, len(n.Content))
		for i, item := range n.Content {
			value, err := fromNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.ScalarNode:
		if n.ShortTag() == nullTag {
			return models.Null{}, nil
		}
		return models.Scalar(n.Value), nil
	default:
		return nil, errors.NewStructureError(fmt.Sprintf("line %d: unsupported YAML node", n.Line), errors.ErrStructureMismatch)
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func encode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, errors.NewOutputError("failed to write YAML tree", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.NewOutputError("failed to write YAML tree", err)
	}
	return buf.Bytes(), nil
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// stringNode leaves quoting to the encoder unless s holds characters a plain or
// block scalar would not carry back unchanged.
func stringNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: strTag, Value: s}
	if needsEscapes(s) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func needsEscapes(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: nullTag, Value: "null"}
}

func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, stringNode(key), value)
}
