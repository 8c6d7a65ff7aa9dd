// Package value implements the tagged dynamic value described in spec.md
// §3/§4.1. Every opcode handler in internal/vm depends on the semantics
// here, so this package has no dependency on either bytecode or vm — it is
// the leaf of the pipeline.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindBool
	KindByte
	KindStr
	KindList
	KindFastList
	KindRange
	KindIter
	KindFile
	KindPtr
)

// Pair is one (key, value) entry of a List, insertion-ordered.
type Pair struct {
	Key string
	Val Value
}

// RangeState is the lazy (start, end, step) sequence from spec.md §3;
// step is always -1 or +1.
type RangeState struct {
	Start, End, Step int32
}

// IterState is the cursor behind an Iter value. It is always reached
// through a pointer so that NXT can mutate it in place while the Iter
// Value sits on the VM's operand stack (spec.md §9, "Iterators on the
// operand stack").
type IterState struct {
	idx   int
	kind  Kind // underlying collection kind being iterated
	list  []Pair
	items []Value
	str   []rune
	rng   RangeState
}

// OpenFile is the single non-tree-shaped resource in the value model
// (spec.md §5, §9 "Shared file handles"): every Value that refers to the
// same open file shares this pointer, so closing through one copy is
// visible through all copies. ID exists purely so debug tooling
// (__burlap_print) can name a handle without dereferencing it.
type OpenFile struct {
	ID     uuid.UUID
	Path   string
	Mode   int // 1=r -1=rb 2=w -2=wb 0=a
	Closed bool
	Pos    int64
	data   []byte // unused; open() in internal/vm stores the real *os.File as handle
	handle interface{}
}

func (f *OpenFile) SetHandle(h interface{}) { f.handle = h }
func (f *OpenFile) Handle() interface{}     { return f.handle }

type Value struct {
	Kind Kind

	I    int32
	F    float32
	Bl   bool
	Byte byte
	S    string

	List  []Pair
	Items []Value
	Rng   RangeState
	Iter  *IterState
	File  *OpenFile
	Ptr   uintptr
}

func None() Value          { return Value{Kind: KindNone} }
func Int(i int32) Value    { return Value{Kind: KindInt, I: i} }
func Float(f float32) Value { return Value{Kind: KindFloat, F: f} }
func Bool(b bool) Value    { return Value{Kind: KindBool, Bl: b} }
func Byte(b byte) Value    { return Value{Kind: KindByte, Byte: b} }
func Str(s string) Value   { return Value{Kind: KindStr, S: s} }

// List builds an insertion-ordered List from pairs, first-match-wins on
// lookup (spec.md §3).
func List(pairs []Pair) Value { return Value{Kind: KindList, List: pairs} }

// FastList builds a dense 0..n list (spec.md §3 "created when all keys
// would be sequential integers starting at zero").
func FastList(items []Value) Value { return Value{Kind: KindFastList, Items: items} }

func Range(start, end, step int32) Value {
	return Value{Kind: KindRange, Rng: RangeState{Start: start, End: end, Step: step}}
}

func Ptr(p uintptr) Value { return Value{Kind: KindPtr, Ptr: p} }

func File(f *OpenFile) Value { return Value{Kind: KindFile, File: f} }

func NewOpenFile(path string, mode int) *OpenFile {
	return &OpenFile{ID: uuid.New(), Path: path, Mode: mode}
}

// GetType returns one of the fixed labels from spec.md §4.1.
func (v Value) GetType() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindInt:
		return "Number"
	case KindFloat:
		return "Decimal"
	case KindBool:
		return "Bool"
	case KindByte:
		return "Byte"
	case KindStr:
		return "String"
	case KindList:
		return "List"
	case KindFastList:
		return "FastList"
	case KindRange:
		return "Range"
	case KindIter:
		return "Iter"
	case KindFile:
		return "File"
	case KindPtr:
		return "Pointer"
	default:
		return "None"
	}
}

// IsTruthy implements spec.md §4.1's truthy rule.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.Bl
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindByte:
		return v.Byte != 0
	case KindStr:
		return v.S != ""
	case KindList:
		return len(v.List) != 0
	case KindFastList:
		return len(v.Items) != 0
	default:
		return true
	}
}

func (v Value) ToInt() int32 {
	switch v.Kind {
	case KindInt:
		return v.I
	case KindFloat:
		return int32(v.F)
	case KindBool:
		if v.Bl {
			return 1
		}
		return 0
	case KindByte:
		return int32(v.Byte)
	case KindStr:
		n, _ := strconv.ParseInt(strings.TrimSpace(v.S), 10, 32)
		return int32(n)
	default:
		return 0
	}
}

func (v Value) ToFloat() float32 {
	switch v.Kind {
	case KindInt:
		return float32(v.I)
	case KindFloat:
		return v.F
	case KindBool:
		if v.Bl {
			return 1
		}
		return 0
	case KindByte:
		return float32(v.Byte)
	case KindStr:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.S), 32)
		return float32(f)
	default:
		return 0
	}
}

// ToString is total: spec.md §4.1 says it "may fail only for structurally
// recursive printing which the value model forbids" — our model forbids
// cycles by construction, so this never errors.
func (v Value) ToString() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.F), 'g', -1, 32)
	case KindBool:
		return strconv.FormatBool(v.Bl)
	case KindByte:
		return string(rune(v.Byte))
	case KindStr:
		return v.S
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, p := range v.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", p.Key, p.Val.ToString())
		}
		sb.WriteByte(']')
		return sb.String()
	case KindFastList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(it.ToString())
		}
		sb.WriteByte(']')
		return sb.String()
	case KindRange:
		return fmt.Sprintf("Range(%d, %d, %d)", v.Rng.Start, v.Rng.End, v.Rng.Step)
	case KindIter:
		return "<iter>"
	case KindFile:
		return fmt.Sprintf("<file %s>", v.File.Path)
	case KindPtr:
		return fmt.Sprintf("<ptr 0x%x>", v.Ptr)
	default:
		return ""
	}
}

// Identical is strict, type-tagged equality used for constant-pool
// deduplication (spec.md §4.2): two constants dedup only when they are the
// same kind and the same bits, never via numeric coercion.
func Identical(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone:
		return true
	case KindInt:
		return a.I == b.I
	case KindFloat:
		return a.F == b.F
	case KindBool:
		return a.Bl == b.Bl
	case KindByte:
		return a.Byte == b.Byte
	case KindStr:
		return a.S == b.S
	default:
		return false
	}
}

// TypedEqual backs the __burlap_typed_eq builtin: strict, no numeric
// coercion (spec.md §3 "Invariants": `Int(1) == Float(1.0)` is false here).
func TypedEqual(a, b Value) bool {
	return Identical(a, b)
}

// CoercedEqual backs the VM's EQ opcode: numeric pairs compare via
// to_float(), everything else compares structurally.
func CoercedEqual(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		return a.ToFloat() == b.ToFloat()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone:
		return true
	case KindBool:
		return a.Bl == b.Bl
	case KindStr:
		return a.S == b.S
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if a.List[i].Key != b.List[i].Key || !CoercedEqual(a.List[i].Val, b.List[i].Val) {
				return false
			}
		}
		return true
	case KindFastList:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !CoercedEqual(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNumeric(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindByte || v.Kind == KindBool
}
