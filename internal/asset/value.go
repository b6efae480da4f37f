package asset

// Serialized forms of the non-literal value states.
const (
	NoneValue       = "None"
	UnresolvedValue = "Rel not found"
)

type valueState uint8

const (
	stateNone valueState = iota
	stateLiteral
	stateUnresolved
)

// Value is the content slot of a record. It is either a literal string (which
// may be empty), absent, or an unresolved relationship reference. The sentinel
// strings only appear once a Value is serialized.
type Value struct {
	text  string
	state valueState
}

// Literal wraps present content.
func Literal(s string) Value { return Value{text: s, state: stateLiteral} }

// None is the absent value.
func None() Value { return Value{} }

// Unresolved marks a relationship id that was not found in the part's map.
func Unresolved() Value { return Value{state: stateUnresolved} }

// Optional returns Literal(s) when ok, None otherwise.
func Optional(s string, ok bool) Value {
	if !ok {
		return None()
	}
	return Literal(s)
}

// ParseValue reverses String for values read back from a flat export.
func ParseValue(s string) Value {
	switch s {
	case NoneValue:
		return None()
	case UnresolvedValue:
		return Unresolved()
	}
	return Literal(s)
}

// Get returns the literal text and whether the value is a literal.
func (v Value) Get() (string, bool) {
	return v.text, v.state == stateLiteral
}

// IsNone reports whether the value is absent. Unresolved references are not
// absent: they carry a data-quality signal.
func (v Value) IsNone() bool { return v.state == stateNone }

// IsUnresolved reports whether the value is a dangling relationship reference.
func (v Value) IsUnresolved() bool { return v.state == stateUnresolved }

// Or returns the literal text, or def when the value is not a literal.
func (v Value) Or(def string) string {
	if v.state == stateLiteral {
		return v.text
	}
	return def
}

func (v Value) String() string {
	switch v.state {
	case stateLiteral:
		return v.text
	case stateUnresolved:
		return UnresolvedValue
	}
	return NoneValue
}

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalText(b []byte) error {
	*v = ParseValue(string(b))
	return nil
}
