package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cbassuarez/flux/internal/ir"
)

// ValueKind discriminates the scalar Value union.
type ValueKind int

const (
	NullKind ValueKind = iota
	NumberKind
	StringKind
	BoolKind
)

// Value is a scalar document value: number, string, bool or null.
// The zero Value is null.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
}

// Number returns a number Value.
func Number(f float64) Value { return Value{Kind: NumberKind, Num: f} }

// Str returns a string Value.
func Str(s string) Value { return Value{Kind: StringKind, Str: s} }

// Boolean returns a bool Value.
func Boolean(b bool) Value { return Value{Kind: BoolKind, Bool: b} }

// Null returns the null Value.
func Null() Value { return Value{} }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == NullKind }

// Truthy follows the usual scripting rules: false, 0, "" and null are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case NumberKind:
		return v.Num != 0
	case StringKind:
		return v.Str != ""
	case BoolKind:
		return v.Bool
	}
	return false
}

// Float coerces v to a number. Strings that do not parse and null give 0.
func (v Value) Float() float64 {
	switch v.Kind {
	case NumberKind:
		return v.Num
	case StringKind:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0
		}
		return f
	case BoolKind:
		if v.Bool {
			return 1
		}
	}
	return 0
}

// String renders v for display and string concatenation.
func (v Value) String() string {
	switch v.Kind {
	case NumberKind:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case StringKind:
		return v.Str
	case BoolKind:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Equal compares two values. Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case NumberKind:
		return v.Num == o.Num
	case StringKind:
		return v.Str == o.Str
	case BoolKind:
		return v.Bool == o.Bool
	}
	return true
}

// ToIR converts v into a render IR value.
func (v Value) ToIR() ir.Value {
	switch v.Kind {
	case NumberKind:
		return ir.Float(v.Num)
	case StringKind:
		return ir.String(v.Str)
	case BoolKind:
		return ir.Bool(v.Bool)
	}
	return ir.Null{}
}

// FromIR converts a scalar IR value. Arrays and objects are rejected.
func FromIR(v ir.Value) (Value, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return Null(), nil
	case ir.Float:
		return Number(float64(val)), nil
	case ir.Int:
		return Number(float64(val)), nil
	case ir.String:
		return Str(string(val)), nil
	case ir.Bool:
		return Boolean(bool(val)), nil
	}
	return Value{}, fmt.Errorf("value must be a scalar, got %T", v)
}

// UnmarshalJSON accepts any JSON scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Boolean(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Str(s)
		return nil
	case '[', '{':
		return fmt.Errorf("value must be a scalar, got %s", data)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*v = Number(f)
	return nil
}

// MarshalJSON writes v as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(v.ToIR())
}
