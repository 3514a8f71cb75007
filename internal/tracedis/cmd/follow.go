package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
	"tracedis/internal/logging"
	"tracedis/internal/scan"
)

var followCmd = &cobra.Command{
	Use:   "follow <trace>",
	Short: "Disassemble an execution trace as it is written",
	Long: `Follow reads an execution trace with one "pc: bytes" line per executed
instruction and prints each instruction indented by its call depth. Blank
lines and lines starting with # are skipped. The file is followed like
tail -f unless --no-follow is given.`,
	Example: `
# 1000: 550a
# 100c: 5470
tracedis follow --arch h8s trace.log
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Arch == "" {
			return fmt.Errorf("follow needs --arch")
		}
		spec, err := arch.ByName(cfg.Arch)
		if err != nil {
			return err
		}
		noFollow, _ := cmd.Flags().GetBool("no-follow")

		t, err := tail.TailFile(args[0], tail.Config{
			Follow:    !noFollow,
			ReOpen:    !noFollow,
			MustExist: true,
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer t.Cleanup()

		tr := newTracer(spec, cmd.OutOrStdout())
		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case line, ok := <-t.Lines:
				if !ok {
					return t.Wait()
				}
				if line.Err != nil {
					return line.Err
				}
				tr.line(line.Num, line.Text)
			}
		}
	},
}

// tracer turns trace lines into an indented listing.
type tracer struct {
	spec  *arch.Spec
	cache *scan.Cache
	stack scan.Callstack
	prev  *disasm.Inst
	out   io.Writer
}

func newTracer(spec *arch.Spec, out io.Writer) *tracer {
	return &tracer{spec: spec, cache: scan.NewCache(spec, nil), out: out}
}

func (tr *tracer) line(num int, text string) {
	pc, code, ok, err := parseTraceLine(text)
	if err != nil {
		logging.Default().Warn("skipping trace line", "line", num, "error", err)
		return
	}
	if !ok {
		return
	}
	if tr.prev != nil {
		tr.stack.Step(tr.prev, pc)
	}
	inst, err := tr.cache.Get(pc, code)
	if err != nil {
		fmt.Fprintf(tr.out, "%s  %s; %v\n", tr.spec.Format.Address(pc), strings.Repeat("  ", tr.stack.Len()), err)
		tr.prev = nil
		return
	}
	printInst(tr.out, tr.spec, inst, nil, tr.stack.Len())
	tr.prev = inst
}

// parseTraceLine splits "pc: bytes". ok is false for blank and comment
// lines.
func parseTraceLine(text string) (pc uint64, code []byte, ok bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") {
		return 0, nil, false, nil
	}
	addr, data, found := strings.Cut(text, ":")
	if !found {
		return 0, nil, false, fmt.Errorf("missing ':' in %q", text)
	}
	addr = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(addr), "0x"), "0X")
	pc, err = strconv.ParseUint(addr, 16, 64)
	if err != nil {
		return 0, nil, false, fmt.Errorf("bad address %q: %w", addr, err)
	}
	code, err = parseHex(strings.Fields(data))
	if err != nil {
		return 0, nil, false, err
	}
	return pc, code, true, nil
}

func init() {
	followCmd.Flags().Bool("no-follow", false, "Stop at end of file")
	rootCmd.AddCommand(followCmd)
}
