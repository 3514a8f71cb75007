package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tracedis/internal/arch"
	"tracedis/internal/scan"
)

var hexCmd = &cobra.Command{
	Use:   "hex <arch> <bytes>...",
	Short: "Decode raw hex bytes",
	Long: `Decode a sequence of hex bytes as a linear run of instructions.
Bytes may be split across arguments and may contain spaces.`,
	Example: `
tracedis hex amd64 "48 8b 45 f8" c3
tracedis hex pdp11 0a00 8700 --base 01000
  `,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := arch.ByName(args[0])
		if err != nil {
			return err
		}
		code, err := parseHex(args[1:])
		if err != nil {
			return err
		}
		base, err := cfg.BaseAddr()
		if err != nil {
			return err
		}
		single, _ := cmd.Flags().GetBool("one")

		out := cmd.OutOrStdout()
		if single {
			inst, err := spec.Decoder.Disassemble(spec.NewReader(code, base), nil)
			if err != nil {
				return err
			}
			printInst(out, spec, inst, nil, 0)
			fmt.Fprintf(out, "; len=%d type=%v reads=%v writes=%v\n", inst.Len, inst.Type, inst.Reads, inst.Writes)
			return nil
		}

		insts, bad := scan.Linear(spec, code, base, nil)
		for i := range insts {
			printInst(out, spec, &insts[i], nil, 0)
		}
		if bad > 0 {
			return fmt.Errorf("%d undecodable positions", bad)
		}
		return nil
	},
}

// parseHex joins args and decodes them, ignoring whitespace and an
// optional 0x prefix on each argument.
func parseHex(args []string) ([]byte, error) {
	var sb strings.Builder
	for _, a := range args {
		a = strings.TrimPrefix(strings.TrimPrefix(a, "0x"), "0X")
		sb.WriteString(strings.Join(strings.Fields(a), ""))
	}
	s := sb.String()
	if s == "" {
		return nil, errors.New("no bytes given")
	}
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return code, nil
}

func init() {
	hexCmd.Flags().BoolP("one", "1", false, "Decode a single instruction and show its register sets")
	rootCmd.AddCommand(hexCmd)
}
