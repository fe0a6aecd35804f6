// Package payload provides typed access to the schema-less entry_data object.
//
// Every value is a tagged union (Kind + one populated field). Lookups never
// panic: a missing key yields a Value of KindAbsent and callers switch on Kind
// with a default branch.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the dynamic type of a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one decoded JSON value.
type Value struct {
	Kind Kind
	Str  string
	Num  json.Number
	Bool bool
	Obj  Object
	Arr  []Value
}

// Object is a decoded JSON object.
type Object map[string]Value

// Absent is the zero Value.
var Absent = Value{Kind: KindAbsent}

// Get returns the value stored under key, or Absent.
func (o Object) Get(key string) Value {
	if o == nil {
		return Absent
	}
	v, ok := o[key]
	if !ok {
		return Absent
	}
	return v
}

// Has reports whether key is present with a non-empty value.
func (o Object) Has(key string) bool {
	return !o.Get(key).IsEmpty()
}

// IsEmpty reports whether the value is absent, null or an empty string.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindAbsent, KindNull:
		return true
	case KindString:
		return v.Str == ""
	default:
		return false
	}
}

// Decode parses entry_data. The API delivers it either as an object or as a
// string holding JSON; both forms are accepted. Empty input decodes to an
// empty object.
func Decode(raw []byte) (Object, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Object{}, nil
	}

	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	switch v.Kind {
	case KindObject:
		return v.Obj, nil
	case KindString:
		if v.Str == "" {
			return Object{}, nil
		}
		inner, err := Parse([]byte(v.Str))
		if err != nil {
			return nil, fmt.Errorf("failed to decode entry_data string: %w", err)
		}
		if inner.Kind != KindObject {
			return nil, fmt.Errorf("entry_data string holds %s, want object", inner.Kind)
		}
		return inner.Obj, nil
	default:
		return nil, fmt.Errorf("entry_data is %s, want object", v.Kind)
	}
}

// Parse decodes a single JSON document into a Value.
func Parse(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return Absent, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if dec.More() {
		return Absent, fmt.Errorf("failed to parse JSON: trailing data")
	}
	return FromInterface(generic), nil
}

// FromInterface converts the output of encoding/json (decoded with UseNumber)
// into a Value.
func FromInterface(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Value{Kind: KindNull}
	case string:
		return Value{Kind: KindString, Str: t}
	case json.Number:
		return Value{Kind: KindNumber, Num: t}
	case float64:
		return Value{Kind: KindNumber, Num: json.Number(strconv.FormatFloat(t, 'f', -1, 64))}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case map[string]interface{}:
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = FromInterface(item)
		}
		return Value{Kind: KindObject, Obj: obj}
	case []interface{}:
		arr := make([]Value, len(t))
		for i, item := range t {
			arr[i] = FromInterface(item)
		}
		return Value{Kind: KindArray, Arr: arr}
	default:
		return Absent
	}
}

// Interface converts a Value back to the plain encoding/json representation.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindObject:
		m := make(map[string]interface{}, len(v.Obj))
		for k, item := range v.Obj {
			m[k] = item.Interface()
		}
		return m
	case KindArray:
		s := make([]interface{}, len(v.Arr))
		for i, item := range v.Arr {
			s[i] = item.Interface()
		}
		return s
	default:
		return nil
	}
}

// JSON renders the value as compact JSON. Object keys are sorted.
func (v Value) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Interface()); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Int coerces a number or a numeric string to an int.
func (v Value) Int() (int, bool) {
	switch v.Kind {
	case KindNumber:
		if i, err := v.Num.Int64(); err == nil {
			return int(i), true
		}
		f, err := v.Num.Float64()
		if err != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case KindString:
		i, err := strconv.Atoi(v.Str)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
