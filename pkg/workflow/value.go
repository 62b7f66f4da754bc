package workflow

import (
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindBool
	KindList
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged union holding exactly one of: number, text, bool, or an
// ordered list of Values. Workflow authors supply loosely-typed literals, so
// the accessors never fail: a mismatched read coerces on a best-effort basis
// and falls back to a documented default. Callers must treat a mismatched
// read as "absent", not as a hard error.
type Value struct {
	kind   Kind
	number float64
	text   string
	flag   bool
	list   []Value
}

// Number creates a numeric Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, number: n}
}

// Text creates a text Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bool creates a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// List creates a list Value from the given elements.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the variant stored in this Value.
func (v Value) Kind() Kind {
	return v.kind
}

// AsNumber returns the stored number. Text parses as a float when it can,
// bools map to 1/0, everything else returns 0.
func (v Value) AsNumber() float64 {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindText:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64); err == nil {
			return n
		}
		return 0
	case KindBool:
		if v.flag {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsText returns the stored text. Numbers stringify canonically (integral
// values without a decimal point), bools become "true"/"false", and lists
// join their elements with commas.
func (v Value) AsText() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return formatNumber(v.number)
	case KindBool:
		if v.flag {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.AsText()
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// AsBool returns the stored bool. The text "true" (case-insensitive) and
// nonzero numbers count as true; everything else is false.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindText:
		return strings.EqualFold(strings.TrimSpace(v.text), "true")
	case KindNumber:
		return v.number != 0
	default:
		return false
	}
}

// AsList returns the stored list, or nil when the variant is not a list.
// The returned slice is shared; callers must not mutate it.
func (v Value) AsList() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Equal reports deep equality between two Values, including kind.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.number == other.number
	case KindText:
		return v.text == other.text
	case KindBool:
		return v.flag == other.flag
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
