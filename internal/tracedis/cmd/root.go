package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
	"tracedis/internal/elfx"
	"tracedis/internal/logging"
	"tracedis/internal/scan"
	"tracedis/internal/symbols"
	tlog "tracedis/internal/tracedis/log"
	"tracedis/internal/tracedis/styles"
	"tracedis/internal/ui/colorize"
)

// cfg is the resolved configuration for the running command.
var cfg = defaultConfig()

func init() {
	rootCmd.PersistentFlags().StringP("arch", "a", "", "Architecture ("+strings.Join(arch.Names(), ", ")+")")
	rootCmd.PersistentFlags().String("base", "", "Address of the first byte of raw input")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")
	rootCmd.PersistentFlags().Bool("demangle", true, "Demangle symbol names")
	rootCmd.PersistentFlags().IntP("workers", "j", 0, "Sections scanned concurrently")
	rootCmd.PersistentFlags().String("config", "", "JSON configuration file")

	rootCmd.Flags().StringP("section", "s", "", "Only disassemble the named section")
	rootCmd.Flags().StringP("func", "f", "", "Only disassemble the named function")
	rootCmd.Flags().IntP("limit", "n", 0, "Stop after this many instructions per section")
}

var rootCmd = &cobra.Command{
	Use:   "tracedis [file]",
	Short: "Disassembler for PDP-11, H8S, AMD64 and AArch64 code",
	Long: `Tracedis decodes machine code into instructions with their length,
control-flow type and branch target. Given an ELF file it disassembles every
executable section using the architecture named in the ELF header.`,
	Example: `
# Disassemble an ELF executable
tracedis ./a.out

# Decode raw bytes
tracedis hex h8s 550a --base 0x2000
  `,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := loadConfig(path)
		if err != nil {
			return err
		}
		applyFlags(cmd, &c)
		cfg = c

		tlog.Setup(cfg.LogFile, cfg.Debug)
		if cfg.Debug {
			os.Setenv("TRACEDIS_LOG_LEVEL", "debug")
		}
		logging.SetDefault(logging.NewLogger().Logger)

		if cfg.NoColor || !term.IsTerminal(os.Stdout.Fd()) {
			os.Setenv("TRACEDIS_NO_COLOR", "1")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := elfx.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to load file: %w", err)
		}
		defer img.Close()

		spec, err := specFor(img)
		if err != nil {
			return err
		}
		section, _ := cmd.Flags().GetString("section")
		fn, _ := cmd.Flags().GetString("func")
		limit, _ := cmd.Flags().GetInt("limit")

		syms := symbols.New(img.Syms, cfg.Demangle)
		regions, err := regionsFor(img, syms, section, fn)
		if err != nil {
			return err
		}
		listings, err := scan.Sections(cmd.Context(), spec, regions, syms, cfg.Workers)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, l := range listings {
			fmt.Fprintln(out, paint(styles.Section, fmt.Sprintf("%s <%s> %s", spec.Format.Address(l.Region.VA), l.Region.Name, spec.Name)))
			insts := l.Insts
			if limit > 0 && len(insts) > limit {
				insts = insts[:limit]
			}
			for i := range insts {
				if name, ok := syms.Lookup(insts[i].VA); ok && !strings.Contains(name, "+") {
					fmt.Fprintf(out, "\n%s:\n", name)
				}
				printInst(out, spec, &insts[i], syms, 0)
			}
			if l.Undecodable > 0 {
				fmt.Fprintf(out, "; %d undecodable positions\n", l.Undecodable)
			}
			fmt.Fprintln(out)
		}
		if n, hits := symbols.CacheStats(); n > 0 {
			logging.Default().Debug("demangle cache", "names", n, "hits", hits)
		}
		return nil
	},
}

// regionsFor selects the code to decode: one function when fn is set,
// otherwise every executable section, or only the one named section.
func regionsFor(img *elfx.Image, syms *symbols.Table, section, fn string) ([]scan.Region, error) {
	if fn != "" {
		sym, ok := syms.Find(fn)
		if !ok {
			return nil, fmt.Errorf("no symbol %q", fn)
		}
		sec, ok := img.ExecAt(sym.Addr)
		if !ok {
			return nil, fmt.Errorf("%s at %#x is not in an executable section", fn, sym.Addr)
		}
		size := sym.Size
		if size == 0 || sym.Addr+size > sec.VA+sec.Size {
			size = sec.VA + sec.Size - sym.Addr
		}
		code, ok := img.SliceVA(sym.Addr, size)
		if !ok {
			return nil, fmt.Errorf("%s at %#x is not backed by the file", fn, sym.Addr)
		}
		return []scan.Region{{Name: fn, VA: sym.Addr, Code: code}}, nil
	}

	var regions []scan.Region
	for _, s := range img.Exec {
		if section != "" && s.Name != section {
			continue
		}
		code, ok := img.Code(s)
		if !ok {
			logging.Default().Warn("section outside file", "section", s.Name)
			continue
		}
		regions = append(regions, scan.Region{Name: s.Name, VA: s.VA, Code: code})
	}
	switch {
	case len(regions) > 0:
		return regions, nil
	case section != "":
		return nil, fmt.Errorf("no executable section %q", section)
	}
	return nil, fmt.Errorf("no executable sections")
}

// specFor picks the family from --arch or the ELF machine.
func specFor(img *elfx.Image) (*arch.Spec, error) {
	if cfg.Arch != "" {
		return arch.ByName(cfg.Arch)
	}
	return arch.Lookup(img.Machine)
}

func paint(s lipgloss.Style, text string) string {
	if !colorize.Enabled() {
		return text
	}
	return s.Render(text)
}

// printInst writes one listing line: address, raw bytes, instruction and
// the resolved branch target.
func printInst(w io.Writer, spec *arch.Spec, inst *disasm.Inst, sym disasm.SymbolResolver, depth int) {
	width := spec.MaxLen
	if width > 8 {
		width = 8
	}
	raw := fmt.Sprintf("% x", inst.Raw)
	if len(inst.Raw) > width {
		raw = fmt.Sprintf("% x…", inst.Raw[:width])
	}

	var comment string
	if inst.Target.Valid {
		comment = "-> " + spec.Format.Address(inst.Target.Addr)
		if name, ok := lookup(sym, inst.Target.Addr); ok {
			comment += " <" + name + ">"
		}
	}
	fmt.Fprintf(w, "%s  %-*s  %s%s\n",
		paint(styles.Address, spec.Format.Address(inst.VA)),
		width*3, paint(styles.Bytes, raw),
		strings.Repeat("  ", depth),
		colorize.Instruction(inst, comment))
}

func lookup(sym disasm.SymbolResolver, addr uint64) (string, bool) {
	if sym == nil {
		return "", false
	}
	return sym.Lookup(addr)
}

func Execute() {
	// Bypass fang when output is piped so its help rendering and error
	// styling stay off plain-text output.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
