// Package colorize renders decoded instructions with terminal colours.
//
// Decoders already tag every operand token, so no lexer is involved: the
// token kinds are mapped onto chroma token types and fed straight to a
// chroma formatter.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"

	"tracedis/internal/disasm"
)

// Enabled reports whether colour output is on. TRACEDIS_NO_COLOR or
// NO_COLOR turn it off.
func Enabled() bool {
	return os.Getenv("TRACEDIS_NO_COLOR") == "" && os.Getenv("NO_COLOR") == ""
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{"disasm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

var kinds = map[disasm.TokenKind]chroma.TokenType{
	disasm.TokRegister: chroma.NameVariable,
	disasm.TokNumber:   chroma.LiteralNumber,
	disasm.TokAddress:  chroma.LiteralNumberHex,
	disasm.TokLabel:    chroma.NameLabel,
	disasm.TokOffset:   chroma.LiteralNumberInteger,
	disasm.TokOther:    chroma.Punctuation,
}

// Tokens converts an instruction into chroma tokens: mnemonic, operands
// and an optional trailing comment.
func Tokens(inst *disasm.Inst, comment string) []chroma.Token {
	toks := []chroma.Token{{Type: chroma.Keyword, Value: inst.Op}}
	for i, arg := range inst.Args {
		sep := " "
		if i > 0 {
			sep = ", "
		}
		toks = append(toks, chroma.Token{Type: chroma.Text, Value: sep})
		for _, t := range arg {
			toks = append(toks, chroma.Token{Type: kinds[t.Kind], Value: t.Text})
		}
	}
	if comment != "" {
		toks = append(toks, chroma.Token{Type: chroma.Comment, Value: "  ; " + comment})
	}
	return toks
}

// Instruction renders inst with an optional comment, coloured when
// Enabled.
func Instruction(inst *disasm.Inst, comment string) string {
	toks := Tokens(inst, comment)
	if !Enabled() {
		var sb strings.Builder
		for _, t := range toks {
			sb.WriteString(t.Value)
		}
		return sb.String()
	}
	var sb strings.Builder
	if err := getTerminalFormatter().Format(&sb, getDisasmStyle(), chroma.Literator(toks...)); err != nil {
		return inst.Text()
	}
	return sb.String()
}
