package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	base    = 0x400000
	codeOff = 64 + 56
)

// image builds a section-less ELF64 with one executable PT_LOAD holding code.
func image(t *testing.T, m elf.Machine, code []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(m),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     base + codeOff,
		Phoff:     64,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     1,
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	size := uint64(codeOff + len(code))
	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  base,
		Paddr:  base,
		Filesz: size,
		Memsz:  size,
		Align:  0x1000,
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, prog); err != nil {
		t.Fatal(err)
	}
	buf.Write(code)
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3}
	im, err := Parse(image(t, elf.EM_X86_64, code))
	if err != nil {
		t.Fatal(err)
	}
	defer im.Close()

	if im.Machine != elf.EM_X86_64 {
		t.Errorf("Machine = %v", im.Machine)
	}
	if im.Entry != base+codeOff {
		t.Errorf("Entry = %#x", im.Entry)
	}
	want := []Section{{Name: "LOAD(exec)", VA: base, Off: 0, Size: codeOff + uint64(len(code))}}
	if diff := cmp.Diff(want, im.Exec); diff != "" {
		t.Errorf("Exec (-want +got):\n%s", diff)
	}

	got, ok := im.SliceVA(im.Entry, uint64(len(code)))
	if !ok || !bytes.Equal(got, code) {
		t.Errorf("SliceVA(entry) = % x, %v", got, ok)
	}
	if _, ok := im.SliceVA(base+0x10000, 1); ok {
		t.Error("SliceVA accepted an unmapped address")
	}
	if s, ok := im.ExecAt(im.Entry); !ok || s.VA != base {
		t.Errorf("ExecAt(entry) = %+v, %v", s, ok)
	}
	text, ok := im.Code(im.Exec[0])
	if !ok || !bytes.Equal(text[codeOff:], code) {
		t.Errorf("Code = % x, %v", text, ok)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.out")
	if err := os.WriteFile(path, image(t, elf.EM_AARCH64, []byte{0xc0, 0x03, 0x5f, 0xd6}), 0o644); err != nil {
		t.Fatal(err)
	}
	im, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if im.Path != path || im.Machine != elf.EM_AARCH64 {
		t.Errorf("got path %q machine %v", im.Path, im.Machine)
	}
	if err := im.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing")); err == nil {
		t.Error("Open(missing) succeeded")
	}
	junk := filepath.Join(dir, "junk")
	if err := os.WriteFile(junk, []byte("not an elf file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(junk); err == nil {
		t.Error("Open(junk) succeeded")
	}
}
