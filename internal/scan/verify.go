package scan

import (
	"errors"
	"fmt"
	"math/rand"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
)

// Report summarises a Verify run.
type Report struct {
	Arch       string
	Words      int // buffers tried
	Decoded    int
	Unknown    int
	ByType     map[disasm.Type]int
	Violations []string
}

// OK reports whether every property held.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

const maxViolations = 20

func (r *Report) fail(format string, args ...any) {
	if len(r.Violations) < maxViolations {
		r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
	}
}

// Verify decodes every opening unit in [0, words) padded with zero bytes
// to MaxLen and checks the decoder contract: Length is total and bounded,
// the fast paths agree with Disassemble, decoding is deterministic and
// any window shorter than the instruction is rejected as truncated. The
// opening unit is the first byte for byte-aligned families, the first
// 16-bit word for 2-byte aligned ones and the top half of the first word
// otherwise.
func Verify(s *arch.Spec, words int, pc uint64) *Report {
	rep := &Report{Arch: s.Name, ByType: make(map[disasm.Type]int)}
	buf := make([]byte, s.MaxLen)
	for w := 0; w < words; w++ {
		clear(buf)
		putUnit(s, buf, w)
		rep.Words++
		check(s, rep, buf, pc, w)
	}
	return rep
}

// Sweep checks the same contract as Verify with random tails. Every
// opening unit in [0, words) and every head is followed by tails buffers
// of bytes drawn from a generator seeded with seed, so a run is
// reproducible. Heads are written at the start of the buffer and may span
// several units, such as prefix bytes ahead of an opcode.
func Sweep(s *arch.Spec, words int, heads [][]byte, tails int, seed int64, pc uint64) *Report {
	rep := &Report{Arch: s.Name, ByType: make(map[disasm.Type]int)}
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, s.MaxLen)
	for w := 0; w < words; w++ {
		for i := 0; i < tails; i++ {
			rng.Read(buf)
			putUnit(s, buf, w)
			rep.Words++
			check(s, rep, buf, pc, w)
		}
	}
	for _, h := range heads {
		if len(h) > len(buf) {
			continue
		}
		for i := 0; i < tails; i++ {
			rng.Read(buf)
			copy(buf, h)
			rep.Words++
			check(s, rep, buf, pc, h)
		}
	}
	return rep
}

// putUnit writes opening unit w over the start of buf. For 4-byte aligned
// families only the top half of the first word is replaced.
func putUnit(s *arch.Spec, buf []byte, w int) {
	switch {
	case s.Align >= 4:
		v := s.Order.Uint32(buf)
		s.Order.PutUint32(buf, v&0xffff|uint32(w)<<16)
	case s.Align == 2:
		s.Order.PutUint16(buf, uint16(w))
	default:
		buf[0] = byte(w)
	}
}

// check decodes buf and records violations against id, an opening unit
// or head.
func check(s *arch.Spec, rep *Report, buf []byte, pc uint64, w any) {
	d := s.Decoder
	r := s.NewReader(buf, pc)
	n := d.Length(r)
	inst, err := d.Disassemble(r, nil)
	if err != nil {
		if !errors.Is(err, disasm.ErrUndecodable) {
			rep.fail("%#x: error %v does not wrap ErrUndecodable", w, err)
		}
		if n != 0 || d.Type(r) != disasm.Other || d.Branch(r) != disasm.None {
			rep.fail("%#x: fast paths accept what Disassemble rejects", w)
		}
		rep.Unknown++
		return
	}
	rep.Decoded++
	rep.ByType[inst.Type]++

	switch {
	case n == 0 || n > s.MaxLen || n%s.Align != 0:
		rep.fail("%#x %s: bad length %d", w, inst.Text(), n)
	case n != inst.Len:
		rep.fail("%#x %s: Length %d, Disassemble %d", w, inst.Text(), n, inst.Len)
	case d.Type(r) != inst.Type:
		rep.fail("%#x %s: Type %v, Disassemble %v", w, inst.Text(), d.Type(r), inst.Type)
	case d.Branch(r) != inst.Target:
		rep.fail("%#x %s: Branch %+v, Disassemble %+v", w, inst.Text(), d.Branch(r), inst.Target)
	case inst.Type == disasm.Jcc && !inst.Target.Valid:
		rep.fail("%#x %s: conditional branch without target", w, inst.Text())
	}

	again, err := d.Disassemble(s.NewReader(buf, pc), nil)
	if err != nil || again.Text() != inst.Text() {
		rep.fail("%#x %s: not deterministic", w, inst.Text())
	}
	for k := 0; k < n; k++ {
		short := s.NewReader(buf[:k], pc)
		if d.Length(short) != 0 {
			rep.fail("%#x %s: accepted a %d byte window", w, inst.Text(), k)
			break
		}
		if _, err := d.Disassemble(short, nil); !errors.Is(err, disasm.ErrTruncated) {
			rep.fail("%#x %s: %d byte window gave %v, want ErrTruncated", w, inst.Text(), k, err)
			break
		}
	}
}

// Units returns the number of distinct opening units Verify can enumerate
// for the family.
func Units(s *arch.Spec) int {
	if s.Align == 1 {
		return 1 << 8
	}
	return 1 << 16
}
