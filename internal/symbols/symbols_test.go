package symbols

import (
	"sync"
	"testing"

	"tracedis/internal/elfx"
)

var testSyms = []elfx.Sym{
	{Name: "main", Addr: 0x1100, Size: 0x40, Func: true},
	{Name: "_start", Addr: 0x1000, Size: 0x20, Func: true},
	{Name: "data_start", Addr: 0x1100},
	{Name: "loop", Addr: 0x1110},
	{Name: "_ZN3foo3barEv", Addr: 0x1200, Size: 0x10, Func: true},
}

func TestLookup(t *testing.T) {
	tab := New(testSyms, true)
	tests := []struct {
		addr uint64
		name string
		ok   bool
	}{
		{0x1000, "_start", true},
		{0x1008, "_start+0x8", true},
		{0x1020, "", false},
		{0x1100, "main", true},
		{0x1108, "main+0x8", true},
		{0x1110, "loop", true},
		{0x1118, "main+0x18", true},
		{0x1140, "", false},
		{0x1200, "foo::bar()", true},
		{0x0fff, "", false},
		{0x2000, "", false},
	}
	for _, tt := range tests {
		name, ok := tab.Lookup(tt.addr)
		if name != tt.name || ok != tt.ok {
			t.Errorf("Lookup(%#x) = %q, %v; want %q, %v", tt.addr, name, ok, tt.name, tt.ok)
		}
	}

	var nilTable *Table
	if _, ok := nilTable.Lookup(0x1000); ok {
		t.Error("nil table resolved an address")
	}
}

func TestFind(t *testing.T) {
	tab := New(testSyms, true)
	if s, ok := tab.Find("foo::bar()"); !ok || s.Addr != 0x1200 || s.Size != 0x10 {
		t.Errorf("Find(foo::bar()) = %+v, %v", s, ok)
	}
	if s, ok := tab.Find("main"); !ok || s.Addr != 0x1100 || !s.Func {
		t.Errorf("Find(main) = %+v, %v", s, ok)
	}
	if s, ok := tab.Find("loop"); !ok || s.Addr != 0x1110 {
		t.Errorf("Find(loop) = %+v, %v", s, ok)
	}
	if _, ok := New(testSyms, false).Find("foo::bar()"); ok {
		t.Error("Find matched a demangled name with demangling off")
	}
}

func TestDemangleConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := Demangle("_ZN3foo3barEv"); got != "foo::bar()" {
					t.Errorf("Demangle = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
	if n, hits := CacheStats(); n == 0 || hits == 0 {
		t.Errorf("CacheStats = %d, %d", n, hits)
	}
	if got := Demangle("plain"); got != "plain" {
		t.Errorf("Demangle(plain) = %q", got)
	}
}
