package vm

import (
	"strings"
	"testing"

	"burlap/internal/bytecode"
)

func TestLEVIPushesScopeFrameAndRSPopsIt(t *testing.T) {
	v := New(bytecode.New())
	if len(v.scope) != 0 {
		t.Fatalf("fresh VM should start with no scope frames, got %d", len(v.scope))
	}
	if err := v.exec(bytecode.LEVI, 0); err != nil {
		t.Fatalf("LEVI: %v", err)
	}
	if len(v.scope) != 1 {
		t.Fatalf("LEVI should push a scope frame, have %d", len(v.scope))
	}
	if err := v.exec(bytecode.RS, 0); err != nil {
		t.Fatalf("RS: %v", err)
	}
	if len(v.scope) != 0 {
		t.Fatalf("RS should pop the scope frame LEVI pushed, have %d", len(v.scope))
	}
}

func TestRSOnEmptyScopeErrors(t *testing.T) {
	v := New(bytecode.New())
	err := v.exec(bytecode.RS, 0)
	if err == nil {
		t.Fatal("RS with no open scope frame should error")
	}
	if !strings.Contains(err.Error(), "cannot raise global scope") {
		t.Errorf("error = %v, want 'cannot raise global scope'", err)
	}
}
