// Package symbols resolves code addresses to symbol names for label-form
// operands.
package symbols

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ianlancetaylor/demangle"

	"tracedis/internal/elfx"
)

// demangleCache memoises demangled names. It is shared by every Table and
// safe for concurrent use.
type demangleCache struct {
	mu    sync.RWMutex
	names map[string]string
	hits  atomic.Int64
}

var cache = &demangleCache{names: make(map[string]string)}

// Demangle returns the demangled form of a C++ or Rust symbol, or name
// unchanged when it is not mangled.
func Demangle(mangled string) string {
	cache.mu.RLock()
	if cached, ok := cache.names[mangled]; ok {
		cache.mu.RUnlock()
		cache.hits.Add(1)
		return cached
	}
	cache.mu.RUnlock()

	demangled := demangle.Filter(mangled, demangle.NoClones)

	cache.mu.Lock()
	cache.names[mangled] = demangled
	cache.mu.Unlock()
	return demangled
}

// CacheStats returns the number of cached names and cache hits so far.
func CacheStats() (entries int, hits int64) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return len(cache.names), cache.hits.Load()
}

// Table is an address-ordered symbol table. It is read-only after New and
// implements disasm.SymbolResolver.
type Table struct {
	syms     []elfx.Sym
	demangle bool
}

// New builds a table from syms. With demangle set, names are demangled
// when looked up.
func New(syms []elfx.Sym, demangle bool) *Table {
	t := &Table{syms: make([]elfx.Sym, len(syms)), demangle: demangle}
	copy(t.syms, syms)
	sort.SliceStable(t.syms, func(i, j int) bool {
		if t.syms[i].Addr != t.syms[j].Addr {
			return t.syms[i].Addr < t.syms[j].Addr
		}
		return t.syms[i].Func && !t.syms[j].Func
	})
	return t
}

// Len returns the number of symbols.
func (t *Table) Len() int { return len(t.syms) }

func (t *Table) name(s elfx.Sym) string {
	if t.demangle {
		return Demangle(s.Name)
	}
	return s.Name
}

// Lookup returns the symbol at addr, or name+offset when addr lies inside
// a sized symbol. Zero-size labels between the two are skipped.
func (t *Table) Lookup(addr uint64) (string, bool) {
	if t == nil {
		return "", false
	}
	i := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].Addr > addr })
	if i == 0 {
		return "", false
	}
	first := i - 1
	for first > 0 && t.syms[first-1].Addr == t.syms[i-1].Addr {
		first--
	}
	if s := t.syms[first]; s.Addr == addr {
		return t.name(s), true
	}
	for j := i - 1; j >= 0; j-- {
		s := t.syms[j]
		if s.Size == 0 {
			continue
		}
		if addr < s.Addr+s.Size {
			return fmt.Sprintf("%s+%#x", t.name(s), addr-s.Addr), true
		}
		break
	}
	return "", false
}

// Find returns the first symbol whose raw or demangled name is name,
// preferring functions.
func (t *Table) Find(name string) (elfx.Sym, bool) {
	var found elfx.Sym
	ok := false
	for _, s := range t.syms {
		if s.Name != name && !(t.demangle && Demangle(s.Name) == name) {
			continue
		}
		if s.Func {
			return s, true
		}
		if !ok {
			found, ok = s, true
		}
	}
	return found, ok
}
