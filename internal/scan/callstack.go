package scan

import "tracedis/internal/disasm"

// Frame is one active call: the call site and the address it returns to.
type Frame struct {
	Site   uint64
	Return uint64
	Target disasm.Target
}

// Callstack tracks calls and returns along an executed instruction stream.
// It is not safe for concurrent use.
type Callstack struct {
	Stack []Frame
}

func (s *Callstack) Len() int { return len(s.Stack) }

func (s *Callstack) Empty() bool { return s.Len() == 0 }

func (s *Callstack) Peek() Frame {
	if s.Empty() {
		return Frame{}
	}
	return s.Stack[s.Len()-1]
}

func (s *Callstack) Push(f Frame) { s.Stack = append(s.Stack, f) }

func (s *Callstack) Pop() Frame {
	if s.Empty() {
		return Frame{}
	}
	ret := s.Peek()
	s.Stack = s.Stack[:s.Len()-1]
	return ret
}

// Step updates the stack for an executed instruction followed by next.
// Calls push a frame. A trap pushes one too unless execution resumed right
// after it, which is how a trace without the handler looks. A return
// unwinds to the frame whose return address is next and leaves the stack
// alone when none matches.
func (s *Callstack) Step(inst *disasm.Inst, next uint64) {
	ret := inst.VA + uint64(inst.Len)
	switch inst.Type {
	case disasm.Call:
		s.Push(Frame{Site: inst.VA, Return: ret, Target: inst.Target})
	case disasm.Syscall:
		if next != ret {
			s.Push(Frame{Site: inst.VA, Return: ret, Target: disasm.At(next)})
		}
	case disasm.Ret, disasm.Rti:
		for i := s.Len() - 1; i >= 0; i-- {
			if s.Stack[i].Return == next {
				s.Stack = s.Stack[:i]
				return
			}
		}
	}
}
