// Package jsonvalue holds the transient JSON document tree produced by the parser
// and consumed by the formatter.
//
// The tree is a closed set of node types: *Object, Array, String, Number, Boolean
// and Null. Numbers keep the literal text of the source document and are never
// converted to a binary float.
package jsonvalue

// Value is any JSON value. Only the types in this package implement it.
type Value interface {
	jsonValue()
}

// Member is a single name/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object whose members keep document order.
type Object struct {
	Members []Member
}

// Array is a JSON array.
type Array []Value

// String is a JSON string.
type String string

// Number is the literal text of a JSON number, e.g. "123.100".
type Number string

// Boolean is a JSON true or false.
type Boolean bool

// Null is the JSON null literal.
type Null struct{}

func (*Object) jsonValue() {}
func (Array) jsonValue()   {}
func (String) jsonValue()  {}
func (Number) jsonValue()  {}
func (Boolean) jsonValue() {}
func (Null) jsonValue()    {}

// NewObject returns an empty object with room for n members.
func NewObject(n int) *Object {
	return &Object{Members: make([]Member, 0, n)}
}

// Set adds a member, or replaces the value of an existing member with the
// same key while keeping its original position.
func (o *Object) Set(key string, value Value) {
	for i := range o.Members {
		if o.Members[i].Key == key {
			o.Members[i].Value = value
			return
		}
	}
	o.Members = append(o.Members, Member{Key: key, Value: value})
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	for _, m := range o.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.Members)
}
