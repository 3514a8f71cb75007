package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"tracedis/internal/arch"
	"tracedis/internal/tracedis/styles"
)

var archsCmd = &cobra.Command{
	Use:   "archs",
	Short: "List supported architectures",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		md := archsMarkdown(arch.All())
		out := cmd.OutOrStdout()
		if !term.IsTerminal(os.Stdout.Fd()) {
			fmt.Fprint(out, md)
			return nil
		}
		width, _, err := term.GetSize(os.Stdout.Fd())
		if err != nil || width <= 0 {
			width = 100
		}
		r, err := styles.MarkdownRenderer(width)
		if err != nil {
			return err
		}
		rendered, err := r.Render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func archsMarkdown(specs []*arch.Spec) string {
	var b strings.Builder
	b.WriteString("# Architectures\n\n")
	b.WriteString("| Name | ELF machine | Aliases | Byte order | Align | Max length |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "| %s | %v | %s | %v | %d | %d |\n",
			s.Name, s.Machine, strings.Join(s.Aliases, ", "), s.Order, s.Align, s.MaxLen)
	}
	b.WriteString("\n## Calling conventions\n\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "### %s\n\n", s.Name)
		fmt.Fprintf(&b, "- Arguments: `%s`\n", strings.Join(s.ABI.Args, " "))
		fmt.Fprintf(&b, "- Return: `%s`\n", strings.Join(s.ABI.Ret, " "))
		fmt.Fprintf(&b, "- Stack pointer: `%s`\n", s.ABI.SP)
		if s.ABI.LR != "" {
			fmt.Fprintf(&b, "- Link register: `%s`\n", s.ABI.LR)
		}
		if s.ABI.Syscall != "" {
			fmt.Fprintf(&b, "- System call number: `%s`\n", s.ABI.Syscall)
		}
		fmt.Fprintf(&b, "- Numbers: `%s`\n\n", s.Format.Address(0x1234))
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(archsCmd)
}
