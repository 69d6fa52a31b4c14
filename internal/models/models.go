package models

// Value is a node of the structured message tree exchanged with the pipeline.
// It is one of *Mapping, Sequence, Scalar or Null. A nil Value is read as Null.
type Value interface {
	messageValue()
}

// Mapping is a named-field container that remembers field insertion order.
type Mapping struct {
	keys   []string
	fields map[string]Value
}

// Sequence is an ordered list of values.
type Sequence []Value

// Scalar is a textual leaf. Numbers and booleans travel as tagged text,
// e.g. "number(1.5)" or "boolean(true)".
type Scalar string

// Null marks an explicit JSON null.
type Null struct{}

func (*Mapping) messageValue() {}
func (Sequence) messageValue() {}
func (Scalar) messageValue()   {}
func (Null) messageValue()     {}

// NewMapping creates an empty Mapping
func NewMapping() *Mapping {
	return &Mapping{fields: make(map[string]Value)}
}

// Set stores value under key. A new key is appended, an existing key keeps its position.
func (m *Mapping) Set(key string, value Value) {
	if m.fields == nil {
		m.fields = make(map[string]Value)
	}
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = value
}

// Get returns the value stored under key
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.fields[key]
	return v, ok
}

// Delete removes key from the mapping
func (m *Mapping) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.fields[key]; !ok {
		return
	}
	delete(m.fields, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the field names in insertion order
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for every field in insertion order until fn returns false
func (m *Mapping) Range(fn func(key string, value Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.fields[k]) {
			return
		}
	}
}

// IsNull reports whether v represents JSON null
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case Null:
		return true
	case *Mapping:
		return x == nil
	default:
		return false
	}
}

// Equal compares two trees. Mapping field order is ignored; nil and Null are equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.fields[k]
			if !ok || !Equal(x.fields[k], yv) {
				return false
			}
		}
		return true
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	default:
		return false
	}
}
