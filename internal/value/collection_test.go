package value

import "testing"

func TestSetKeyFastListPromotesToList(t *testing.T) {
	fl := FastList([]Value{Int(1), Int(2)})
	out, err := SetKey(fl, Str("name"), Str("x"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != KindList {
		t.Fatalf("SetKey with a non-dense key should promote to List, got %v", out.Kind)
	}
	if len(out.List) != 3 {
		t.Fatalf("promoted list should keep both original items plus the new key, got %d entries", len(out.List))
	}
	if out.List[0].Key != "0" || out.List[1].Key != "1" || out.List[2].Key != "name" {
		t.Errorf("promoted list keys = %v", out.List)
	}
}

func TestSetKeyFastListAppendsNextDenseIndex(t *testing.T) {
	fl := FastList([]Value{Int(1)})
	out, err := SetKey(fl, Int(1), Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != KindFastList {
		t.Fatalf("appending at len(items) should stay a FastList, got %v", out.Kind)
	}
	if len(out.Items) != 2 || out.Items[1].I != 2 {
		t.Errorf("SetKey append = %v", out.Items)
	}
}

func TestSetKeyListOverwritesExistingKey(t *testing.T) {
	l := List([]Pair{{Key: "a", Val: Int(1)}})
	out, err := SetKey(l, Str("a"), Int(9))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.List) != 1 || out.List[0].Val.I != 9 {
		t.Errorf("SetKey overwrite = %v", out.List)
	}
}

func TestIndexFastListOutOfBounds(t *testing.T) {
	fl := FastList([]Value{Int(1)})
	if _, ok := Index(fl, Int(5)); ok {
		t.Error("Index out of bounds should report ok=false")
	}
}

func TestContainsStringSubstring(t *testing.T) {
	if !Contains(Str("hello world"), Str("wor")) {
		t.Error("Contains should find a substring")
	}
}

func TestIterNextRangeDescending(t *testing.T) {
	it, err := ToIter(Range(3, 0, -1))
	if err != nil {
		t.Fatal(err)
	}
	var got []int32
	for {
		v, ok := IterNext(it)
		if !ok {
			break
		}
		got = append(got, v.I)
	}
	want := []int32{3, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("IterNext produced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IterNext[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestToIterScalarFails(t *testing.T) {
	if _, err := ToIter(Int(1)); err == nil {
		t.Error("ToIter(Int) should fail, ints are not iterable")
	}
}
