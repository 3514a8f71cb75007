package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracedis/internal/elfx"
	"tracedis/internal/scan"
	"tracedis/internal/symbols"
	"tracedis/internal/tracedis/styles"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Split executable sections into basic blocks",
	Long: `Scan decodes every executable section using only the length, type and
branch-target paths and prints the basic blocks and call edges it finds.`,
	Args: cobra.ExactArgs(1),
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
		syms := symbols.New(img.Syms, cfg.Demangle)
		name := func(addr uint64) string {
			s := spec.Format.Address(addr)
			if n, ok := syms.Lookup(addr); ok {
				s += " <" + n + ">"
			}
			return s
		}

		fn, _ := cmd.Flags().GetString("func")
		regions, err := regionsFor(img, syms, "", fn)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range regions {
			g := scan.Blocks(spec, r.Code, r.VA)
			fmt.Fprintln(out, paint(styles.Section, fmt.Sprintf("%s: %d blocks, %d calls, %d undecodable",
				r.Name, len(g.Blocks), len(g.Calls), g.Undecodable)))
			for _, b := range g.Blocks {
				fmt.Fprintf(out, "  %s..%s %d insts %v", name(b.Start), spec.Format.Address(b.End), b.Insts, b.Term)
				for _, succ := range b.Succs {
					fmt.Fprintf(out, " -> %s", spec.Format.Address(succ))
				}
				fmt.Fprintln(out)
			}
			for _, c := range g.Calls {
				dest := "indirect"
				if c.Target.Valid {
					dest = name(c.Target.Addr)
				}
				fmt.Fprintf(out, "  call %s -> %s\n", paint(styles.Address, spec.Format.Address(c.Site)), paint(styles.Target, dest))
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringP("func", "f", "", "Only scan the named function")
	rootCmd.AddCommand(scanCmd)
}
