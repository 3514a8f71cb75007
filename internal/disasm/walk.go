package disasm

// Walk runs an opcode tree against r and maps its outcome onto the decoder
// error taxonomy: a Cursor fault becomes ErrTruncated, a dead end becomes
// ErrUnknownOpcode. Trees call Cursor.Require with the full instruction
// length at their leaf so a window shorter than the instruction always
// fails here.
func Walk[L any](r *Reader, tree func(*Cursor) (L, bool)) (L, error) {
	var zero L
	c := r.Cursor()
	leaf, ok := tree(c)
	if c.err != nil {
		return zero, c.err
	}
	if !ok {
		return zero, ErrUnknownOpcode
	}
	return leaf, nil
}
