package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tracedis/internal/arch"
	"tracedis/internal/disasm"
	"tracedis/internal/scan"
	"tracedis/internal/tracedis/styles"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [arch]...",
	Short: "Check decoder consistency over the opcode space",
	Long: `Verify decodes every opening byte or word of each named architecture
and checks that the length, type and branch paths agree with the full
disassembler. With no arguments every architecture is checked.

With --tails each opening unit is instead followed by that many buffers of
random bytes drawn from --seed, which reaches operand encodings a zero
padded buffer never shows.`,
	Example: `
tracedis verify
tracedis verify h8s --tails 8 --seed 7
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs := arch.All()
		if len(args) > 0 {
			specs = specs[:0]
			for _, name := range args {
				s, err := arch.ByName(name)
				if err != nil {
					return err
				}
				specs = append(specs, s)
			}
		}
		base, err := cfg.BaseAddr()
		if err != nil {
			return err
		}

		tails, _ := cmd.Flags().GetInt("tails")
		seed, _ := cmd.Flags().GetInt64("seed")
		if tails < 0 {
			return fmt.Errorf("--tails must not be negative")
		}

		out := cmd.OutOrStdout()
		failed := false
		for _, s := range specs {
			var rep *scan.Report
			if tails > 0 {
				rep = scan.Sweep(s, scan.Units(s), nil, tails, seed, base)
			} else {
				rep = scan.Verify(s, scan.Units(s), base)
			}
			status := paint(styles.Pass, "PASS")
			if !rep.OK() {
				status = paint(styles.Fail, "FAIL")
				failed = true
			}
			fmt.Fprintf(out, "%s %-6s %d buffers, %d decoded, %d unknown\n", status, s.Name, rep.Words, rep.Decoded, rep.Unknown)

			types := make([]disasm.Type, 0, len(rep.ByType))
			for t := range rep.ByType {
				types = append(types, t)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			for _, t := range types {
				fmt.Fprintln(out, paint(styles.Dim, fmt.Sprintf("       %-12v %d", t, rep.ByType[t])))
			}
			for _, v := range rep.Violations {
				fmt.Fprintf(out, "       %s\n", v)
			}
		}
		if failed {
			return errors.New("decoder consistency check failed")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().Int("tails", 0, "Random tails per opening unit; 0 pads with zeros")
	verifyCmd.Flags().Int64("seed", 1, "Seed for the random tails")
	rootCmd.AddCommand(verifyCmd)
}
