// Package arch is the table of supported instruction set families.
//
// The table is built once at package initialisation and never mutated, so
// lookups are safe from any goroutine without locking.
package arch

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"tracedis/internal/arch/amd64"
	"tracedis/internal/arch/arm64"
	"tracedis/internal/arch/h8s"
	"tracedis/internal/arch/pdp11"
	"tracedis/internal/disasm"
)

// ABI names the registers of the family's calling convention.
type ABI struct {
	Args    []string // argument registers, in order
	Ret     []string // return value registers
	SP      string
	LR      string // link register, empty when the return address is on the stack
	Syscall string // register holding the system call number
}

// Spec describes one instruction set family.
type Spec struct {
	Machine elf.Machine
	Name    string
	Aliases []string
	Order   binary.ByteOrder
	Align   int // instruction alignment in bytes
	MaxLen  int // longest instruction in bytes
	Decoder disasm.Decoder
	ABI     ABI
	Format  disasm.NumberFormat
}

// NewReader returns a reader over code at pc in the family's byte order.
func (s *Spec) NewReader(code []byte, pc uint64) *disasm.Reader {
	return disasm.NewReader(code, pc, s.Order)
}

func (s *Spec) String() string { return s.Name }

var specs = []*Spec{
	{
		Machine: elf.EM_PDP11,
		Name:    "pdp11",
		Aliases: []string{"pdp-11", "lsi11"},
		Order:   pdp11.Order,
		Align:   2,
		MaxLen:  pdp11.MaxLen,
		Decoder: pdp11.Decoder{},
		ABI: ABI{
			Args: []string{"R0", "R1"},
			Ret:  []string{"R0", "R1"},
			SP:   "SP",
		},
		Format: pdp11.Format,
	},
	{
		Machine: elf.EM_H8S,
		Name:    "h8s",
		Aliases: []string{"h8s2600", "h8/s"},
		Order:   h8s.Order,
		Align:   2,
		MaxLen:  h8s.MaxLen,
		Decoder: h8s.Decoder{},
		ABI: ABI{
			Args: []string{"ER0", "ER1", "ER2"},
			Ret:  []string{"ER0"},
			SP:   "SP",
		},
		Format: h8s.Format,
	},
	{
		Machine: elf.EM_X86_64,
		Name:    "amd64",
		Aliases: []string{"x86_64", "x86-64", "x64"},
		Order:   amd64.Order,
		Align:   1,
		MaxLen:  amd64.MaxLen,
		Decoder: amd64.Decoder{},
		ABI: ABI{
			Args:    []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
			Ret:     []string{"rax", "rdx"},
			SP:      "rsp",
			Syscall: "rax",
		},
		Format: amd64.Format,
	},
	{
		Machine: elf.EM_AARCH64,
		Name:    "arm64",
		Aliases: []string{"aarch64", "a64"},
		Order:   arm64.Order,
		Align:   4,
		MaxLen:  arm64.MaxLen,
		Decoder: arm64.Decoder{},
		ABI: ABI{
			Args:    []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"},
			Ret:     []string{"x0", "x1"},
			SP:      "sp",
			LR:      "x30",
			Syscall: "x8",
		},
		Format: arm64.Format,
	},
}

var (
	byMachine = make(map[elf.Machine]*Spec)
	byName    = make(map[string]*Spec)
)

func init() {
	for _, s := range specs {
		byMachine[s.Machine] = s
		byName[s.Name] = s
		for _, a := range s.Aliases {
			byName[a] = s
		}
	}
}

// Lookup returns the family for an ELF machine.
func Lookup(m elf.Machine) (*Spec, error) {
	if s, ok := byMachine[m]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unsupported machine %v", m)
}

// ByName returns the family for a name or alias, ignoring case.
func ByName(name string) (*Spec, error) {
	if s, ok := byName[strings.ToLower(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown architecture %q (have %s)", name, strings.Join(Names(), ", "))
}

// All returns every family in registration order.
func All() []*Spec {
	out := make([]*Spec, len(specs))
	copy(out, specs)
	return out
}

// Names returns the primary family names, sorted.
func Names() []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
