package scan

import (
	"bytes"
	"sync"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
)

type cacheEntry struct {
	mem  []byte
	inst *disasm.Inst
}

// Cache memoises disassembly by address for callers that re-query the
// same code, such as a trace viewer. An entry is reused only while the
// bytes at its address are unchanged.
type Cache struct {
	mu    sync.RWMutex
	spec  *arch.Spec
	sym   disasm.SymbolResolver
	cache map[uint64]cacheEntry
}

func NewCache(s *arch.Spec, sym disasm.SymbolResolver) *Cache {
	return &Cache{spec: s, sym: sym, cache: make(map[uint64]cacheEntry)}
}

// Get returns the instruction at pc decoded from mem, which must start at pc.
func (c *Cache) Get(pc uint64, mem []byte) (*disasm.Inst, error) {
	c.mu.RLock()
	if ent, ok := c.cache[pc]; ok && len(mem) >= len(ent.mem) && bytes.Equal(mem[:len(ent.mem)], ent.mem) {
		c.mu.RUnlock()
		return ent.inst, nil
	}
	c.mu.RUnlock()

	inst, err := c.spec.Decoder.Disassemble(c.spec.NewReader(mem, pc), c.sym)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[pc] = cacheEntry{mem: bytes.Clone(mem[:inst.Len]), inst: inst}
	c.mu.Unlock()
	return inst, nil
}

// Len returns the number of cached instructions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
