// Package elfx provides helpers for opening ELF binaries, locating code sections, and mapping virtual addresses to file offsets.
package elfx

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"
	"sort"
	"syscall"
)

type Image struct {
	Path    string
	File    *elf.File
	All     []byte
	Machine elf.Machine
	Entry   uint64
	Loads   []Seg
	Exec    []Section // executable code regions, in address order
	Syms    []Sym     // defined symbols from .symtab and .dynsym, by address
	mapped  bool
	f       *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

type Sym struct {
	Name string
	Addr uint64
	Size uint64
	Func bool
}

// Open maps the file at path read-only and parses it.
func Open(path string) (*Image, error) {
	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.Size() == 0 {
		of.Close()
		return nil, fmt.Errorf("open elf: %s is empty", path)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im, err := Parse(all)
	if err != nil {
		syscall.Munmap(all)
		of.Close()
		return nil, err
	}
	im.Path, im.mapped, im.f = path, true, of
	return im, nil
}

// Parse reads an ELF image held in memory.
func Parse(all []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(all))
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{File: f, All: all, Machine: f.Machine, Entry: f.Entry}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	// Use true sections if present.
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_EXECINSTR == 0 || s.Size == 0 {
			continue
		}
		im.Exec = append(im.Exec, Section{s.Name, s.Addr, s.Offset, s.Size})
	}

	// Fallback if stripped of section headers.
	if len(im.Exec) == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Exec = append(im.Exec, Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz})
			}
		}
	}
	sort.Slice(im.Exec, func(i, j int) bool { return im.Exec[i].VA < im.Exec[j].VA })

	im.loadSymbols()
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.mapped && im.All != nil {
		err1 = syscall.Munmap(im.All)
	}
	im.All = nil
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns a subslice of the mapped file corresponding to the virtual address range [va, va+size).
// It returns (nil, false) if the VA is unmapped or the range is out of bounds.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// Code returns the bytes of an executable section.
func (im *Image) Code(s Section) ([]byte, bool) {
	end := s.Off + s.Size
	if end > uint64(len(im.All)) || end < s.Off {
		return nil, false
	}
	return im.All[s.Off:end], true
}

// ExecAt returns the executable section containing va.
func (im *Image) ExecAt(va uint64) (Section, bool) {
	for _, s := range im.Exec {
		if va >= s.VA && va < s.VA+s.Size {
			return s, true
		}
	}
	return Section{}, false
}

// loadSymbols collects defined symbols from .symtab and .dynsym.
// Stripped binaries simply end up with fewer entries.
func (im *Image) loadSymbols() {
	seen := make(map[Sym]bool)
	add := func(syms []elf.Symbol) {
		for _, sym := range syms {
			// Skip undefined symbols
			if sym.Value == 0 || sym.Name == "" || sym.Section == elf.SHN_UNDEF {
				continue
			}
			typ := elf.ST_TYPE(sym.Info)
			if typ == elf.STT_SECTION || typ == elf.STT_FILE {
				continue
			}
			s := Sym{Name: sym.Name, Addr: sym.Value, Size: sym.Size, Func: typ == elf.STT_FUNC}
			if !seen[s] {
				seen[s] = true
				im.Syms = append(im.Syms, s)
			}
		}
	}
	if syms, err := im.File.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		add(syms)
	}
	sort.SliceStable(im.Syms, func(i, j int) bool { return im.Syms[i].Addr < im.Syms[j].Addr })
}
