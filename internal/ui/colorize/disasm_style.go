package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDark is the instruction colour scheme, keyed by the token types
// Tokens produces.
var DisasmDark = styles.Register(chroma.MustNewStyle("disasm-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#6A9955",

	chroma.Keyword:      "#FFFFFF", // mnemonics
	chroma.NameVariable: "#7C9C9D", // registers

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#B5CEA8", // addresses
	chroma.LiteralNumberInteger: "#FF5F87", // displacements

	chroma.NameLabel:   "#FFD700",
	chroma.Punctuation: "#FFFFFF",
}))
