package disasm

import (
	"strconv"
	"strings"
)

// NumberFormat describes how an architecture conventionally prints numbers.
// The UI also uses it for address columns.
type NumberFormat struct {
	Radix        int    // 8, 10 or 16
	Prefix       string // e.g. "0x" or "H'"
	Upper        bool   // upper-case hex digits
	DecimalBelow uint64 // values below this are printed in decimal
	AddrDigits   int    // zero-padded width of the address column
}

// Number formats an unsigned value.
func (f NumberFormat) Number(v uint64) string {
	if v < f.DecimalBelow || f.Radix == 10 {
		return strconv.FormatUint(v, 10)
	}
	s := strconv.FormatUint(v, f.radix())
	if f.Upper {
		s = strings.ToUpper(s)
	}
	return f.Prefix + s
}

// Signed formats v with a leading '-' when negative.
func (f NumberFormat) Signed(v int64) string {
	if v < 0 {
		return "-" + f.Number(uint64(-v))
	}
	return f.Number(uint64(v))
}

// Address formats an address zero-padded to AddrDigits, without prefix.
func (f NumberFormat) Address(v uint64) string {
	s := strconv.FormatUint(v, f.radix())
	if f.Upper {
		s = strings.ToUpper(s)
	}
	if n := f.AddrDigits - len(s); n > 0 {
		s = strings.Repeat("0", n) + s
	}
	return s
}

func (f NumberFormat) radix() int {
	if f.Radix == 0 {
		return 16
	}
	return f.Radix
}
