package disasm

import "strings"

// TokenKind tags a piece of operand text so renderers can highlight it
// without re-parsing.
type TokenKind int

const (
	TokRegister TokenKind = iota
	TokNumber
	TokAddress
	TokLabel
	TokOffset
	TokOther
)

func (k TokenKind) String() string {
	switch k {
	case TokRegister:
		return "REGISTER"
	case TokNumber:
		return "NUMBER"
	case TokAddress:
		return "ADDRESS"
	case TokLabel:
		return "LABEL"
	case TokOffset:
		return "OFFSET"
	case TokOther:
		return "OTHER"
	}
	return "unknown token"
}

// Token is one lexical piece of an operand.
type Token struct {
	Kind     TokenKind
	Text     string
	Value    uint64
	HasValue bool
}

// Operand is the ordered token sequence of one instruction argument.
type Operand []Token

func (o Operand) String() string {
	var sb strings.Builder
	for _, t := range o {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Value returns the first valued token of the operand.
func (o Operand) Value() (uint64, bool) {
	for _, t := range o {
		if t.HasValue {
			return t.Value, true
		}
	}
	return 0, false
}

// Reg returns a register token.
func Reg(name string) Token { return Token{Kind: TokRegister, Text: name} }

// Punct returns a punctuation token such as "@", "(" or ",".
func Punct(s string) Token { return Token{Kind: TokOther, Text: s} }

// Num returns a number token carrying v.
func Num(text string, v uint64) Token {
	return Token{Kind: TokNumber, Text: text, Value: v, HasValue: true}
}

// Off returns a displacement token carrying the raw (two's complement) value.
func Off(text string, v uint64) Token {
	return Token{Kind: TokOffset, Text: text, Value: v, HasValue: true}
}

// AddrTok returns a LABEL token when sym knows addr and an ADDRESS token
// formatted with f otherwise.
func AddrTok(addr uint64, f NumberFormat, sym SymbolResolver) Token {
	if sym != nil {
		if name, ok := sym.Lookup(addr); ok {
			return Token{Kind: TokLabel, Text: name, Value: addr, HasValue: true}
		}
	}
	return Token{Kind: TokAddress, Text: f.Number(addr), Value: addr, HasValue: true}
}
