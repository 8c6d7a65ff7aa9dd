package value

import (
	"fmt"
	"strings"
)

// Add implements spec.md §4.1's `+`: string concatenation, list/fastlist
// concatenation, or numeric addition.
func Add(a, b Value) (Value, error) {
	if a.Kind == KindStr || b.Kind == KindStr {
		return Str(a.ToString() + b.ToString()), nil
	}
	if a.Kind == KindList && b.Kind == KindList {
		return List(append(append([]Pair{}, a.List...), b.List...)), nil
	}
	if a.Kind == KindFastList && b.Kind == KindFastList {
		return FastList(append(append([]Value{}, a.Items...), b.Items...)), nil
	}
	return numeric(a, b, "add", func(x, y int32) int32 { return x + y }, func(x, y float32) float32 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return numeric(a, b, "subtract", func(x, y int32) int32 { return x - y }, func(x, y float32) float32 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	if a.Kind == KindStr && b.Kind == KindInt {
		if b.I <= 0 {
			return Str(""), nil
		}
		return Str(strings.Repeat(a.S, int(b.I))), nil
	}
	return numeric(a, b, "multiply", func(x, y int32) int32 { return x * y }, func(x, y float32) float32 { return x * y })
}

// Div always produces a Float when both operands are Int (spec.md §4.1:
// "division on two ints produces float").
func Div(a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, fmt.Errorf("Cannot divide %s and %s", a.GetType(), b.GetType())
	}
	return Float(a.ToFloat() / b.ToFloat()), nil
}

func Mod(a, b Value) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		if b.I == 0 {
			return Value{}, fmt.Errorf("Cannot modulo %s and %s by zero", a.GetType(), b.GetType())
		}
		return Int(a.I % b.I), nil
	}
	if isNumeric(a) && isNumeric(b) {
		af, bf := a.ToFloat(), b.ToFloat()
		return Float(af - bf*float32(int32(af/bf))), nil
	}
	return Value{}, fmt.Errorf("Cannot modulo %s and %s", a.GetType(), b.GetType())
}

func numeric(a, b Value, op string, intOp func(int32, int32) int32, floatOp func(float32, float32) float32) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, fmt.Errorf("Cannot %s %s and %s", op, a.GetType(), b.GetType())
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float(floatOp(a.ToFloat(), b.ToFloat())), nil
	}
	return Int(intOp(a.ToInt(), b.ToInt())), nil
}
