package value

import (
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestKindOf(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		lv   glua.LValue
		want Kind
	}{
		{"nil", glua.LNil, KindNil},
		{"untyped nil", nil, KindNil},
		{"true", glua.LTrue, KindBool},
		{"integer", glua.LNumber(42), KindInt},
		{"negative integer", glua.LNumber(-7), KindInt},
		{"float", glua.LNumber(3.14), KindFloat},
		{"string", glua.LString("hello"), KindString},
		{"table", L.NewTable(), KindTable},
		{"userdata", L.NewUserData(), KindObject},
		{"function", L.NewFunction(func(*glua.LState) int { return 0 }), KindFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.lv); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindNil:      "nil",
		KindBool:     "bool",
		KindInt:      "int",
		KindFloat:    "float",
		KindString:   "string",
		KindTable:    "table",
		KindObject:   "object",
		KindFunction: "function",
		KindChannel:  "channel",
		Kind(99):     "unknown",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestBorrowDoesNotPin(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	before := PinCount(L, tbl)

	v := Borrow(L, tbl)
	if v.Owned() {
		t.Error("Borrow() produced an owned value")
	}
	v.Release()

	if got := PinCount(L, tbl); got != before {
		t.Errorf("pin count after borrow-then-release = %d, want %d", got, before)
	}
}

func TestOwnPinsAndReleases(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()

	v := Own(L, tbl)
	if !v.Owned() {
		t.Fatal("Own() produced a non-owned value")
	}
	if got := PinCount(L, tbl); got != 1 {
		t.Fatalf("pin count after Own() = %d, want 1", got)
	}

	v.Release()
	if got := PinCount(L, tbl); got != 0 {
		t.Errorf("pin count after Release() = %d, want 0", got)
	}
}

func TestRetainIncrementsPin(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	v := Own(L, tbl)
	second := v.Retain()

	if got := PinCount(L, tbl); got != 2 {
		t.Fatalf("pin count after Retain() = %d, want 2", got)
	}

	second.Release()
	if got := PinCount(L, tbl); got != 1 {
		t.Errorf("pin count after one Release() = %d, want 1", got)
	}
	v.Release()
	if got := PinCount(L, tbl); got != 0 {
		t.Errorf("pin count after both Release() = %d, want 0", got)
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	v := Own(L, tbl)
	other := Own(L, tbl)

	v.Release()
	v.Release() // Second release must not touch the other handle's pin

	if got := PinCount(L, tbl); got != 1 {
		t.Errorf("pin count after double release = %d, want 1", got)
	}
	other.Release()
}

func TestScalarReleaseIsNoOp(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	v := Own(L, glua.LNumber(5))
	v.Release()
	v = Own(L, glua.LString("s"))
	v.Release()
}

func TestIntoOwnedFromBorrow(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	b := Borrow(L, tbl)
	o := b.IntoOwned()

	if got := PinCount(L, tbl); got != 1 {
		t.Fatalf("pin count after IntoOwned() = %d, want 1", got)
	}

	view := o.AsBorrowed()
	if view.Owned() {
		t.Error("AsBorrowed() produced an owned value")
	}
	view.Release()
	if got := PinCount(L, tbl); got != 1 {
		t.Errorf("pin count after releasing borrowed view = %d, want 1", got)
	}

	o.Release()
	if got := PinCount(L, tbl); got != 0 {
		t.Errorf("pin count after final Release() = %d, want 0", got)
	}
}

func TestPinsOutOfScriptReach(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	v := Own(L, tbl)
	defer v.Release()

	// A hostile chunk wiping the globals must not disturb ownership
	// bookkeeping.
	err := L.DoString(`for k in pairs(_G) do if k ~= "_G" and k ~= "pairs" then _G[k] = nil end end`)
	if err != nil {
		t.Fatalf("DoString() error: %v", err)
	}
	if got := PinCount(L, tbl); got != 1 {
		t.Errorf("pin count after global wipe = %d, want 1", got)
	}
}

func TestReleaseAllDropsStatePins(t *testing.T) {
	L := glua.NewState()

	tbl := L.NewTable()
	Own(L, tbl)
	Own(L, tbl)

	L.Close()
	ReleaseAll(L)
	if got := PinCount(L, tbl); got != 0 {
		t.Errorf("pin count after ReleaseAll() = %d, want 0", got)
	}
}

func TestNilValue(t *testing.T) {
	v := Nil()
	if !v.IsNil() {
		t.Error("Nil().IsNil() = false, want true")
	}
	if v.Raw() != glua.LNil {
		t.Errorf("Nil().Raw() = %v, want LNil", v.Raw())
	}
}
