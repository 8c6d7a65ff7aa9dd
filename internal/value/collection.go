package value

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Index implements spec.md §4.1 `index(key)`. ok is false on miss, letting
// the caller raise the VM's "failed to index" error with its own location.
func Index(target, key Value) (Value, bool) {
	switch target.Kind {
	case KindList:
		k := key.ToString()
		i := slices.IndexFunc(target.List, func(p Pair) bool { return p.Key == k })
		if i < 0 {
			return None(), false
		}
		return target.List[i].Val, true
	case KindFastList:
		i := int(key.ToInt())
		if i < 0 || i >= len(target.Items) {
			return None(), false
		}
		return target.Items[i], true
	case KindStr:
		r := []rune(target.S)
		i := int(key.ToInt())
		if i < 0 || i >= len(r) {
			return None(), false
		}
		return Str(string(r[i])), true
	case KindRange:
		i := int64(key.ToInt())
		v := int64(target.Rng.Start) + i*int64(target.Rng.Step)
		if target.Rng.Step > 0 && (v >= int64(target.Rng.End) || v < int64(target.Rng.Start)) {
			return None(), false
		}
		if target.Rng.Step < 0 && (v <= int64(target.Rng.End) || v > int64(target.Rng.Start)) {
			return None(), false
		}
		return Int(int32(v)), true
	default:
		return None(), false
	}
}

// SetKey implements the SKY opcode: set a key on a List/FastList,
// promoting FastList -> List when the key is neither an existing index
// nor the next dense integer index (spec.md §3 invariant, §8 property 7).
func SetKey(target Value, key Value, val Value) (Value, error) {
	switch target.Kind {
	case KindList:
		k := key.ToString()
		list := append([]Pair{}, target.List...)
		i := slices.IndexFunc(list, func(p Pair) bool { return p.Key == k })
		if i >= 0 {
			list[i].Val = val
		} else {
			list = append(list, Pair{Key: k, Val: val})
		}
		return List(list), nil
	case KindFastList:
		if key.Kind == KindInt && key.I >= 0 && int(key.I) < len(target.Items) {
			items := append([]Value{}, target.Items...)
			items[key.I] = val
			return FastList(items), nil
		}
		if key.Kind == KindInt && int(key.I) == len(target.Items) {
			return FastList(append(append([]Value{}, target.Items...), val)), nil
		}
		// promote to List, preserving order with stringified integer keys
		list := make([]Pair, len(target.Items))
		for i, it := range target.Items {
			list[i] = Pair{Key: strconv.Itoa(i), Val: it}
		}
		list = append(list, Pair{Key: key.ToString(), Val: val})
		return List(list), nil
	default:
		return Value{}, fmt.Errorf("cannot assign to out of bounds key")
	}
}

// Contains implements spec.md §4.1 `contains(element)`.
func Contains(target, elem Value) bool {
	switch target.Kind {
	case KindList:
		for _, p := range target.List {
			if CoercedEqual(p.Val, elem) {
				return true
			}
		}
		return false
	case KindFastList:
		return slices.IndexFunc(target.Items, func(v Value) bool { return CoercedEqual(v, elem) }) >= 0
	case KindStr:
		return strings.Contains(target.S, elem.ToString())
	default:
		return false
	}
}

// ToIter wraps v as an Iter (spec.md §4.1 `to_iter`); fails for scalar
// kinds.
func ToIter(v Value) (Value, error) {
	st := &IterState{kind: v.Kind}
	switch v.Kind {
	case KindList:
		st.list = v.List
	case KindFastList:
		st.items = v.Items
	case KindStr:
		st.str = []rune(v.S)
	case KindRange:
		st.rng = v.Rng
	default:
		return Value{}, fmt.Errorf("cannot iterate over %s", v.GetType())
	}
	return Value{Kind: KindIter, Iter: st}, nil
}

// IterNext implements the NXT opcode's semantics: advance the cursor and
// return (value, true) or (None, false) on exhaustion. The Iter argument
// is mutated in place through its pointer (spec.md §9).
func IterNext(it Value) (Value, bool) {
	st := it.Iter
	switch st.kind {
	case KindList:
		if st.idx >= len(st.list) {
			return None(), false
		}
		v := st.list[st.idx].Val
		st.idx++
		return v, true
	case KindFastList:
		if st.idx >= len(st.items) {
			return None(), false
		}
		v := st.items[st.idx]
		st.idx++
		return v, true
	case KindStr:
		if st.idx >= len(st.str) {
			return None(), false
		}
		v := Str(string(st.str[st.idx]))
		st.idx++
		return v, true
	case KindRange:
		cur := st.rng.Start + int32(st.idx)*st.rng.Step
		if st.rng.Step > 0 && cur >= st.rng.End {
			return None(), false
		}
		if st.rng.Step < 0 && cur <= st.rng.End {
			return None(), false
		}
		st.idx++
		return Int(cur), true
	default:
		return None(), false
	}
}
