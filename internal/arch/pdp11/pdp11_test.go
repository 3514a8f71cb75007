package pdp11

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracedis/internal/disasm"
)

func words(ws ...uint16) []byte {
	b := make([]byte, 2*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint16(b[2*i:], w)
	}
	return b
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name   string
		pc     uint64
		code   []uint16
		text   string
		len    int
		typ    disasm.Type
		target disasm.Target
	}{
		{name: "halt", code: []uint16{0000000}, text: "HALT", len: 2},
		{name: "nop", code: []uint16{0000240}, text: "NOP", len: 2},
		{name: "clc", code: []uint16{0000241}, text: "CLC", len: 2},
		{name: "ccc", code: []uint16{0000257}, text: "CCC", len: 2},
		{name: "scc", code: []uint16{0000277}, text: "SCC", len: 2},
		{name: "combined flags", code: []uint16{0000243}, text: "CLC|CLV", len: 2},
		{name: "mov register", code: []uint16{0010001}, text: "MOV R0, R1", len: 2},
		{name: "mov immediate", code: []uint16{0012700, 0000017}, text: "MOV #17, R0", len: 4},
		{name: "mov absolute", code: []uint16{0013701, 0001000}, text: "MOV @#1000, R1", len: 4},
		{name: "mov relative", pc: 01000, code: []uint16{0016701, 0000010}, text: "MOV 1014, R1", len: 4},
		{name: "mov relative both", pc: 01000, code: []uint16{0016767, 0000002, 0000004}, text: "MOV 1006, 1012", len: 6},
		{name: "mov indexed", code: []uint16{0016001, 0177776}, text: "MOV -2(R0), R1", len: 4},
		{name: "mov deferred autoinc", code: []uint16{0013102}, text: "MOV @(R1)+, R2", len: 2},
		{name: "movb autodec", code: []uint16{0114142}, text: "MOVB -(R1), -(R2)", len: 2},
		{name: "push", code: []uint16{0010046}, text: "PUSH R0", len: 2},
		{name: "pop", code: []uint16{0012601}, text: "POP R1", len: 2},
		{name: "movb to stack stays generic", code: []uint16{0110046}, text: "MOVB R0, -(SP)", len: 2},
		{name: "br", pc: 01000, code: []uint16{0000407}, text: "BR 1020", len: 2, typ: disasm.Jmp, target: disasm.At(01020)},
		{name: "bne backwards", pc: 01000, code: []uint16{0001377}, text: "BNE 1000", len: 2, typ: disasm.Jcc, target: disasm.At(01000)},
		{name: "bcs", pc: 01000, code: []uint16{0103402}, text: "BCS 1006", len: 2, typ: disasm.Jcc, target: disasm.At(01006)},
		{name: "sob", pc: 01000, code: []uint16{0077102}, text: "SOB R1, 776", len: 2, typ: disasm.Jcc, target: disasm.At(0776)},
		{name: "jmp absolute", code: []uint16{0000137, 0002000}, text: "JMP @#2000", len: 4, typ: disasm.Jmp, target: disasm.At(02000)},
		{name: "jmp relative", pc: 01000, code: []uint16{0000167, 0000100}, text: "JMP 1104", len: 4, typ: disasm.Jmp, target: disasm.At(01104)},
		{name: "jmp register deferred", code: []uint16{0000110}, text: "JMP (R0)", len: 2, typ: disasm.JmpIndirect},
		{name: "jmp relative deferred", pc: 01000, code: []uint16{0000177, 0000100}, text: "JMP @1104", len: 4, typ: disasm.JmpIndirect},
		{name: "jsr relative", pc: 01000, code: []uint16{0004767, 0000100}, text: "JSR PC, 1104", len: 4, typ: disasm.Call, target: disasm.At(01104)},
		{name: "jsr register deferred", code: []uint16{0004710}, text: "JSR PC, (R0)", len: 2, typ: disasm.Call},
		{name: "rts", code: []uint16{0000207}, text: "RTS PC", len: 2, typ: disasm.Ret},
		{name: "rti", code: []uint16{0000002}, text: "RTI", len: 2, typ: disasm.Rti},
		{name: "rtt", code: []uint16{0000006}, text: "RTT", len: 2, typ: disasm.Rti},
		{name: "emt", code: []uint16{0104005}, text: "EMT 5", len: 2, typ: disasm.Syscall},
		{name: "trap", code: []uint16{0104777}, text: "TRAP 377", len: 2, typ: disasm.Syscall},
		{name: "bpt", code: []uint16{0000003}, text: "BPT", len: 2},
		{name: "iot", code: []uint16{0000004}, text: "IOT", len: 2},
		{name: "mul", code: []uint16{0070102}, text: "MUL R2, R1", len: 2},
		{name: "xor", code: []uint16{0074102}, text: "XOR R1, R2", len: 2},
		{name: "spl", code: []uint16{0000233}, text: "SPL 3", len: 2},
		{name: "mark", code: []uint16{0006403}, text: "MARK 3", len: 2, typ: disasm.Ret},
		{name: "clrb", code: []uint16{0105000}, text: "CLRB R0", len: 2},
		{name: "sxt", code: []uint16{0006711}, text: "SXT (R1)", len: 2},
		{name: "mtps immediate", code: []uint16{0106427, 0000340}, text: "MTPS #340", len: 4},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := words(tt.code...)
			r := disasm.NewReader(code, tt.pc, Order)
			inst, err := d.Disassemble(r, nil)
			if err != nil {
				t.Fatalf("Disassemble(%o) error: %v", tt.code, err)
			}
			if got := inst.Text(); got != tt.text {
				t.Errorf("text = %q, want %q", got, tt.text)
			}
			if inst.Len != tt.len || d.Length(r) != tt.len {
				t.Errorf("len = %d, Length = %d, want %d", inst.Len, d.Length(r), tt.len)
			}
			if inst.Type != tt.typ || d.Type(r) != tt.typ {
				t.Errorf("type = %v, Type = %v, want %v", inst.Type, d.Type(r), tt.typ)
			}
			if inst.Target != tt.target || d.Branch(r) != tt.target {
				t.Errorf("target = %+v, Branch = %+v, want %+v", inst.Target, d.Branch(r), tt.target)
			}
		})
	}
}

func TestRegisterSets(t *testing.T) {
	tests := []struct {
		name   string
		code   []uint16
		reads  disasm.RegSet
		writes disasm.RegSet
	}{
		{name: "mov", code: []uint16{0010001}, reads: disasm.RegSet{"R0"}, writes: disasm.RegSet{"R1"}},
		{name: "add", code: []uint16{0060001}, reads: disasm.RegSet{"R0", "R1"}, writes: disasm.RegSet{"R1"}},
		{name: "cmp", code: []uint16{0020001}, reads: disasm.RegSet{"R0", "R1"}},
		{name: "add same register", code: []uint16{0060101}, reads: disasm.RegSet{"R1"}, writes: disasm.RegSet{"R1"}},
		{name: "push", code: []uint16{0010046}, reads: disasm.RegSet{"R0", "SP"}, writes: disasm.RegSet{"SP"}},
		{name: "generic predecrement", code: []uint16{0010045}, reads: disasm.RegSet{"R0", "R5"}, writes: disasm.RegSet{"R5"}},
		{name: "pop", code: []uint16{0012601}, reads: disasm.RegSet{"SP"}, writes: disasm.RegSet{"SP", "R1"}},
		{name: "immediate hides pc", code: []uint16{0012700, 0000017}, writes: disasm.RegSet{"R0"}},
		{name: "indexed base", code: []uint16{0016001, 0000004}, reads: disasm.RegSet{"R0"}, writes: disasm.RegSet{"R1"}},
		{name: "jsr link", code: []uint16{0004537, 0001000}, reads: disasm.RegSet{"R5", "SP"}, writes: disasm.RegSet{"R5", "SP"}},
		{name: "rts link", code: []uint16{0000205}, reads: disasm.RegSet{"R5", "SP"}, writes: disasm.RegSet{"R5", "SP"}},
		{name: "mul even pair", code: []uint16{0070200}, reads: disasm.RegSet{"R0", "R2"}, writes: disasm.RegSet{"R2", "R3"}},
		{name: "div odd register", code: []uint16{0071301}, reads: disasm.RegSet{"R1", "R3"}, writes: disasm.RegSet{"R3"}},
		{name: "div even pair", code: []uint16{0071201}, reads: disasm.RegSet{"R1", "R2", "R3"}, writes: disasm.RegSet{"R2", "R3"}},
		{name: "ashc pair", code: []uint16{0073004}, reads: disasm.RegSet{"R4", "R0", "R1"}, writes: disasm.RegSet{"R0", "R1"}},
		{name: "sob counter", code: []uint16{0077102}, reads: disasm.RegSet{"R1"}, writes: disasm.RegSet{"R1"}},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := d.Disassemble(disasm.NewReader(words(tt.code...), 0, Order), nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.reads, inst.Reads); diff != "" {
				t.Errorf("reads (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.writes, inst.Writes); diff != "" {
				t.Errorf("writes (-want +got):\n%s", diff)
			}
		})
	}
}

// PUSH and POP report the same sets as the generic stack moves.
func TestAliasSets(t *testing.T) {
	var d Decoder
	push, err := d.Disassemble(disasm.NewReader(words(0010046), 0, Order), nil)
	if err != nil {
		t.Fatal(err)
	}
	mov, err := d.Disassemble(disasm.NewReader(words(0110046), 0, Order), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(mov.Reads, push.Reads); diff != "" {
		t.Errorf("PUSH reads differ from MOVB (-movb +push):\n%s", diff)
	}
	if diff := cmp.Diff(mov.Writes, push.Writes); diff != "" {
		t.Errorf("PUSH writes differ from MOVB (-movb +push):\n%s", diff)
	}
}

func TestLabels(t *testing.T) {
	syms := disasm.SymbolFunc(func(addr uint64) (string, bool) {
		if addr == 02000 {
			return "start", true
		}
		return "", false
	})
	var d Decoder
	inst, err := d.Disassemble(disasm.NewReader(words(0000137, 0002000), 0, Order), syms)
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.Text(); got != "JMP @#start" {
		t.Errorf("text = %q, want %q", got, "JMP @#start")
	}
	if k := inst.Args[0][1].Kind; k != disasm.TokLabel {
		t.Errorf("token kind = %v, want LABEL", k)
	}
}

func TestUndecodable(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		cause error
	}{
		{name: "empty", cause: disasm.ErrTruncated},
		{name: "odd byte", code: []byte{0x01}, cause: disasm.ErrTruncated},
		{name: "missing immediate", code: words(0012700), cause: disasm.ErrTruncated},
		{name: "missing destination index", code: words(0016767, 0000002), cause: disasm.ErrTruncated},
		{name: "jmp register", code: words(0000100), cause: disasm.ErrUnknownOpcode},
		{name: "jsr register", code: words(0004501), cause: disasm.ErrUnknownOpcode},
		{name: "floating point", code: words(0170000), cause: disasm.ErrUnknownOpcode},
		{name: "reserved", code: words(0000010), cause: disasm.ErrUnknownOpcode},
	}

	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := disasm.NewReader(tt.code, 0, Order)
			_, err := d.Disassemble(r, nil)
			if !errors.Is(err, disasm.ErrUndecodable) || !errors.Is(err, tt.cause) {
				t.Fatalf("error = %v, want %v", err, tt.cause)
			}
			if d.Length(r) != 0 || d.Type(r) != disasm.Other || d.Branch(r) != disasm.None {
				t.Errorf("fast paths disagree on undecodable input")
			}
		})
	}
}

func TestOpcodeSpace(t *testing.T) {
	var d Decoder
	buf := make([]byte, MaxLen)
	for w := 0; w <= 0xffff; w++ {
		binary.LittleEndian.PutUint16(buf, uint16(w))
		r := disasm.NewReader(buf, 0o1000, Order)

		inst, err := d.Disassemble(r, nil)
		n := d.Length(r)
		if err != nil {
			if !errors.Is(err, disasm.ErrUnknownOpcode) || n != 0 {
				t.Fatalf("%06o: error %v, Length %d", w, err, n)
			}
			continue
		}
		if n != inst.Len || n%2 != 0 || n > MaxLen {
			t.Fatalf("%06o: Length = %d, Disassemble len = %d", w, n, inst.Len)
		}
		if d.Type(r) != inst.Type || d.Branch(r) != inst.Target {
			t.Fatalf("%06o %s: fast paths disagree with Disassemble", w, inst.Text())
		}
		for k := 0; k < n; k++ {
			if got := d.Length(disasm.NewReader(buf[:k], 0o1000, Order)); got != 0 {
				t.Fatalf("%06o %s: Length over %d bytes = %d", w, inst.Text(), k, got)
			}
		}
	}
}
