package docx

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"
)

// Value is anything which could be bound in a data context. The set of
// implementations is closed: Scalar, List, Record, *Image and Nil.
type Value interface {
	value()
}

type (
	// Scalar wraps a single printable value: string, bool, number, time or
	// anything implementing fmt.Stringer.
	Scalar struct{ V any }

	// List is an ordered sequence of values, iterated by loops.
	List []Value

	// Record gives access to named fields. Callers could wrap any of their
	// own structures by implementing it.
	Record interface {
		Value
		Field(name string) (Value, bool)
	}

	// Map is the simplest Record.
	Map map[string]Value

	// RecordFunc adapts a lookup function to Record.
	RecordFunc func(name string) (Value, bool)

	nilValue struct{}
)

// Nil is the absent value.
var Nil Value = nilValue{}

func (Scalar) value()     {}
func (List) value()       {}
func (Map) value()        {}
func (RecordFunc) value() {}
func (nilValue) value()   {}
func (*Image) value()     {}

func (m Map) Field(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

func (f RecordFunc) Field(name string) (Value, bool) {
	return f(name)
}

func (s Scalar) String() string {
	switch v := s.V.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (nilValue) String() string { return "nil" }

// Truthy reports whether value counts as true in conditions.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil, nilValue:
		return false
	case List:
		return len(v) > 0
	case Scalar:
		switch s := v.V.(type) {
		case nil:
			return false
		case bool:
			return s
		case string:
			return s != ""
		}
		if f, ok := toFloat(v.V); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	default:
		return true
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func kindOf(v Value) string {
	switch v.(type) {
	case nil, nilValue:
		return "nil"
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case *Image:
		return "image"
	case Record:
		return "record"
	}
	return fmt.Sprintf("%T", v)
}

// FromAny converts plain Go data into Value. Maps must have string keys,
// slices become lists. Structures are not inspected, wrap them into Record
// instead.
func FromAny(in any) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Nil, nil
	case Value:
		return v, nil
	case map[string]any:
		m := make(Map, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			val, err := FromAny(v[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = val
		}
		return m, nil
	case []any:
		l := make(List, 0, len(v))
		for i, item := range v {
			val, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l = append(l, val)
		}
		return l, nil
	case []string:
		l := make(List, 0, len(v))
		for _, s := range v {
			l = append(l, Scalar{V: s})
		}
		return l, nil
	case []map[string]any:
		l := make(List, 0, len(v))
		for i, item := range v {
			val, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l = append(l, val)
		}
		return l, nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time, fmt.Stringer:
		return Scalar{V: v}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", in)
}

// Context is the set of bindings visible to expressions. It is immutable,
// With returns a child overlaying one more binding.
type Context struct {
	parent *Context
	name   string
	value  Value
	vars   Map
}

// NewContext creates root context from given bindings.
func NewContext(vars Map) Context {
	if vars == nil {
		vars = Map{}
	}
	return Context{vars: vars}
}

// NewContextFromAny converts plain Go map into root context.
func NewContextFromAny(vars map[string]any) (Context, error) {
	v, err := FromAny(vars)
	if err != nil {
		return Context{}, err
	}
	if v == Nil {
		return NewContext(nil), nil
	}
	return NewContext(v.(Map)), nil
}

// With returns child context where name is bound to v. Parent is not changed.
func (c Context) With(name string, v Value) Context {
	parent := c
	return Context{parent: &parent, name: name, value: v}
}

// Lookup finds binding by name, innermost first.
func (c Context) Lookup(name string) (Value, bool) {
	cur := &c
	for ; cur.parent != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	v, ok := cur.vars[name]
	return v, ok
}
