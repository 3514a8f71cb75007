// Package disasm defines the common instruction representation and decoder
// contract shared by the architecture-specific disassemblers.
package disasm

import (
	"strings"
)

// Type is the control-flow role of an instruction. It is assigned once per
// instruction and drives call-stack and CFG reconstruction downstream.
type Type int

const (
	Other Type = iota
	Jmp
	JmpIndirect
	Jcc
	Call
	Ret
	Rti
	Syscall
)

func (t Type) String() string {
	switch t {
	case Other:
		return "OTHER"
	case Jmp:
		return "JMP"
	case JmpIndirect:
		return "JMP_INDIRECT"
	case Jcc:
		return "JCC"
	case Call:
		return "CALL"
	case Ret:
		return "RET"
	case Rti:
		return "RTI"
	case Syscall:
		return "SYSCALL"
	}
	return "unknown type"
}

// EndsBlock reports whether execution may not fall through to the next
// instruction in a straight line.
func (t Type) EndsBlock() bool {
	switch t {
	case Jmp, JmpIndirect, Jcc, Ret, Rti:
		return true
	}
	return false
}

// Target is a statically known branch destination. The zero value means
// "no known target", which is distinct from a target at address 0.
type Target struct {
	Addr  uint64
	Valid bool
}

// None is the "no statically known target" value.
var None = Target{}

// At returns a valid target for addr.
func At(addr uint64) Target { return Target{Addr: addr, Valid: true} }

// Inst is a decoded instruction. It is built once by a Decoder and treated
// as immutable afterwards.
type Inst struct {
	VA     uint64    // virtual address of instruction
	Len    int       // encoded length in bytes
	Op     string    // mnemonic as printed by the architecture's assembler
	Args   []Operand // operands in assembler syntax order
	Type   Type
	Target Target
	Reads  RegSet // registers read by the instruction's operands
	Writes RegSet // registers written by the instruction's operands
	Raw    []byte // raw encoding
}

// Text renders the instruction as "MNEMONIC op1, op2".
func (i *Inst) Text() string {
	if len(i.Args) == 0 {
		return i.Op
	}
	var sb strings.Builder
	sb.WriteString(i.Op)
	for n, a := range i.Args {
		if n == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

func (i *Inst) String() string { return i.Text() }

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decoder is implemented by every architecture family. All four methods
// are pure and reentrant: they read only the window behind the Reader and
// keep no state between calls.
//
// Undecodable input (truncated window or unknown opcode) yields 0 from
// Length, Other from Type, None from Branch and an error wrapping
// ErrUndecodable from Disassemble.
type Decoder interface {
	Length(r *Reader) int
	Type(r *Reader) Type
	Branch(r *Reader) Target
	Disassemble(r *Reader, sym SymbolResolver) (*Inst, error)
}

// SymbolResolver maps an address to a symbol name for label-form operands.
type SymbolResolver interface {
	Lookup(addr uint64) (string, bool)
}

// SymbolFunc adapts a function to SymbolResolver.
type SymbolFunc func(addr uint64) (string, bool)

func (f SymbolFunc) Lookup(addr uint64) (string, bool) { return f(addr) }

// RegSet is an ordered register-name set without duplicates.
type RegSet []string

// Add appends name unless it is already present.
func (s *RegSet) Add(name string) {
	if name == "" || s.Has(name) {
		return
	}
	*s = append(*s, name)
}

// Has reports whether name is in the set.
func (s RegSet) Has(name string) bool {
	for _, r := range s {
		if r == name {
			return true
		}
	}
	return false
}

func (s RegSet) String() string { return strings.Join(s, ",") }
