package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracedis/internal/arch"
	"tracedis/internal/elfx"
	"tracedis/internal/scan"
	"tracedis/internal/symbols"
	"tracedis/internal/tracedis/styles"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TRACEDIS_NO_COLOR", "1")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHexCommand(t *testing.T) {
	out, err := run(t, "hex", "h8s", "550a", "54 70", "--base", "0x1000")
	if err != nil {
		t.Fatalf("hex: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "BSR H'100C") || !strings.Contains(lines[0], "->") {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "RTS") {
		t.Errorf("second line %q", lines[1])
	}
}

func TestHexCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown arch", []string{"hex", "z80", "00"}},
		{"bad hex", []string{"hex", "amd64", "zz"}},
		{"odd length", []string{"hex", "amd64", "c"}},
		{"undecodable", []string{"hex", "pdp11", "ffff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseHex(t *testing.T) {
	got, err := parseHex([]string{"0x48 8b", "45f8", "C3"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x48, 0x8b, 0x45, 0xf8, 0xc3}, got); diff != "" {
		t.Errorf("bytes (-want +got):\n%s", diff)
	}
	if _, err := parseHex([]string{" "}); err == nil {
		t.Error("empty input accepted")
	}
}

func TestParseTraceLine(t *testing.T) {
	tests := []struct {
		line    string
		pc      uint64
		code    []byte
		ok      bool
		wantErr bool
	}{
		{line: "1000: 55 0a", pc: 0x1000, code: []byte{0x55, 0x0a}, ok: true},
		{line: "  0x7ffe1000:c3  ", pc: 0x7ffe1000, code: []byte{0xc3}, ok: true},
		{line: ""},
		{line: "# header"},
		{line: "1000 c3", wantErr: true},
		{line: "xyz: c3", wantErr: true},
		{line: "1000: c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			pc, code, ok, err := parseTraceLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if pc != tt.pc || ok != tt.ok {
				t.Errorf("pc, ok = %#x, %v; want %#x, %v", pc, ok, tt.pc, tt.ok)
			}
			if diff := cmp.Diff(tt.code, code); diff != "" {
				t.Errorf("code (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTracerDepth(t *testing.T) {
	t.Setenv("TRACEDIS_NO_COLOR", "1")
	spec, err := arch.ByName("h8s")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	tr := newTracer(spec, &out)

	steps := []struct {
		line  string
		depth int
	}{
		{"# call and return", 0},
		{"1000: 5504", 0}, // BSR H'1006
		{"1006: 0000", 1},
		{"1008: 5470", 1}, // RTS
		{"1002: 0000", 0},
		{"1004: 0100", 0}, // undecodable
		{"1006: 0000", 0},
	}
	for _, s := range steps {
		tr.line(0, s.line)
		if got := tr.stack.Len(); got != s.depth {
			t.Errorf("after %q depth = %d, want %d", s.line, got, s.depth)
		}
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[2], "    RTS") {
		t.Errorf("RTS not indented: %q", lines[2])
	}
	if tr.cache.Len() != 4 {
		t.Errorf("cache holds %d entries, want 4", tr.cache.Len())
	}
}

func TestTracerTrapInsideCall(t *testing.T) {
	t.Setenv("TRACEDIS_NO_COLOR", "1")
	spec, err := arch.ByName("h8s")
	if err != nil {
		t.Fatal(err)
	}
	tr := newTracer(spec, io.Discard)
	steps := []struct {
		line  string
		depth int
	}{
		{"1000: 5e002000", 0}, // JSR @H'2000
		{"2000: 5700", 1},     // TRAPA #0
		{"3000: 5670", 2},     // RTE
		{"2002: 5470", 1},     // RTS
		{"1004: 0000", 0},
	}
	for _, s := range steps {
		tr.line(0, s.line)
		if got := tr.stack.Len(); got != s.depth {
			t.Errorf("after %q depth = %d, want %d", s.line, got, s.depth)
		}
	}
}

func TestFollowCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	trace := "1000: 5504\n1006: 5470\n1002: 0000\n"
	if err := os.WriteFile(path, []byte(trace), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "follow", "--arch", "h8s", "--no-follow", path)
	if err != nil {
		t.Fatalf("follow: %v\n%s", err, out)
	}
	for _, want := range []string{"BSR H'1006", "RTS", "NOP"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRegionsFor(t *testing.T) {
	all := make([]byte, 0x40)
	img := &elfx.Image{
		All:   all,
		Loads: []elfx.Seg{{Vaddr: 0x1000, Off: 0, Filesz: 0x40}},
		Exec:  []elfx.Section{{Name: ".text", VA: 0x1010, Off: 0x10, Size: 0x30}},
	}
	syms := symbols.New([]elfx.Sym{
		{Name: "main", Addr: 0x1010, Size: 0x10, Func: true},
		{Name: "tail", Addr: 0x1030},
		{Name: "table", Addr: 0x1000, Size: 0x10},
	}, true)

	tests := []struct {
		name    string
		section string
		fn      string
		want    []scan.Region
		wantErr bool
	}{
		{name: "all", want: []scan.Region{{Name: ".text", VA: 0x1010, Code: all[0x10:0x40]}}},
		{name: "section", section: ".text", want: []scan.Region{{Name: ".text", VA: 0x1010, Code: all[0x10:0x40]}}},
		{name: "missing section", section: ".init", wantErr: true},
		{name: "sized function", fn: "main", want: []scan.Region{{Name: "main", VA: 0x1010, Code: all[0x10:0x20]}}},
		{name: "label runs to section end", fn: "tail", want: []scan.Region{{Name: "tail", VA: 0x1030, Code: all[0x30:0x40]}}},
		{name: "data symbol", fn: "table", wantErr: true},
		{name: "unknown function", fn: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := regionsFor(img, syms, tt.section, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("regions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"arch":"pdp11","demangle":false,"workers":2,"base":"01000"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"arch":`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := loadConfig("")
	if err != nil || !c.Demangle {
		t.Errorf("defaults = %+v, %v", c, err)
	}
	c, err = loadConfig(good)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{Arch: "pdp11", Base: "01000", Workers: 2}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if base, err := c.BaseAddr(); err != nil || base != 0o1000 {
		t.Errorf("BaseAddr = %#o, %v", base, err)
	}
	if _, err := loadConfig(bad); err == nil {
		t.Error("malformed config accepted")
	}
	if _, err := loadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing config accepted")
	}
}

func TestBaseAddr(t *testing.T) {
	tests := []struct {
		base    string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"4096", 4096, false},
		{"0x400000", 0x400000, false},
		{"0o17", 15, false},
		{"H'100", 0, true},
	}
	for _, tt := range tests {
		got, err := Config{Base: tt.base}.BaseAddr()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("BaseAddr(%q) = %#x, %v", tt.base, got, err)
		}
	}
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"arch"`, `"base"`, `"demangle"`, `"workers"`, `"logFile"`} {
		if !strings.Contains(out, field) {
			t.Errorf("schema missing %s", field)
		}
	}
}

func TestArchsMarkdown(t *testing.T) {
	md := archsMarkdown(arch.All())
	for _, want := range []string{"| pdp11 |", "| h8s |", "| amd64 |", "| arm64 |", "`x30`", "`rdi rsi rdx rcx r8 r9`"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestArchsRendered(t *testing.T) {
	r, err := styles.MarkdownRenderer(100)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render(archsMarkdown(arch.All()))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"pdp11", "amd64", "x30"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestVerifyCommand(t *testing.T) {
	out, err := run(t, "verify", "h8s", "--base", "0")
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "PASS h8s") {
		t.Errorf("output:\n%s", out)
	}
}

func TestVerifyCommandTails(t *testing.T) {
	out, err := run(t, "verify", "pdp11", "--tails", "1", "--seed", "3")
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "PASS pdp11") || !strings.Contains(out, "65536 buffers") {
		t.Errorf("output:\n%s", out)
	}
	if _, err := run(t, "verify", "pdp11", "--tails=-1"); err == nil {
		t.Error("negative tails accepted")
	}
}
