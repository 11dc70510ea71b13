package codegen

import (
	"github.com/pkg/errors"
)

// Interp executes a single generated Func in process, without an
// external assembler or linker, so that tests can assert the exit code
// a compiled program would produce (spec.md §8's round-trip property).
// It is a direct adaptation of the teacher's vm.Instance.Run
// switch-dispatch loop (vm/run.go): fixed-width instruction stream,
// program counter advanced by the dispatched case, one recover+wrap at
// the boundary rather than per instruction.
type Interp struct {
	regs  [12]int64
	flags struct {
		zf bool
		sf bool
	}
	stack []byte // simulated process stack; index 0 is the lowest address
	sp    int64  // current rsp, as an index into stack (grows downward)
	rbp   int64

	labels map[string]int
	ip     int

	exited   bool
	exitCode int
}

// NewInterp allocates a simulated stack big enough for fn's frame plus
// headroom for nested calls, and resolves every label to its
// instruction index.
func NewInterp(fn Func) *Interp {
	const stackBytes = 1 << 16
	it := &Interp{stack: make([]byte, stackBytes), labels: map[string]int{}}
	it.sp = int64(stackBytes)
	for i, instr := range fn.Instrs {
		if instr.Kind == XLabel {
			it.labels[instr.Label] = i
		}
	}
	return it
}

// regVal returns the current value of a register. RSP and RBP are backed
// by sp and rbp, so that push/pop and frame-relative slots see the same
// stack pointer and frame pointer the instructions set.
func (it *Interp) regVal(r Reg) int64 {
	switch r {
	case Rsp:
		return it.sp
	case Rbp:
		return it.rbp
	}
	return it.regs[r]
}

func (it *Interp) setReg(r Reg, v int64) {
	switch r {
	case Rsp:
		it.sp = v
	case Rbp:
		it.rbp = v
	default:
		it.regs[r] = v
	}
}

func (it *Interp) read(l Loc) int64 {
	switch {
	case l.IsReg:
		return it.regVal(l.Reg)
	case l.IsIndirect:
		return it.readMem(it.regVal(l.Reg))
	default:
		return it.readMem(it.rbp - int64(l.Offset))
	}
}

func (it *Interp) write(l Loc, v int64) {
	switch {
	case l.IsReg:
		it.setReg(l.Reg, v)
	case l.IsIndirect:
		it.writeMem(it.regVal(l.Reg), v)
	default:
		it.writeMem(it.rbp-int64(l.Offset), v)
	}
}

func (it *Interp) readMem(addr int64) int64 {
	var v int64
	for i := 0; i < 8; i++ {
		v |= int64(it.stack[addr+int64(i)]) << (8 * i)
	}
	return v
}

func (it *Interp) writeMem(addr int64, v int64) {
	for i := 0; i < 8; i++ {
		it.stack[addr+int64(i)] = byte(v >> (8 * i))
	}
}

func (it *Interp) push(v int64) {
	it.sp -= 8
	it.writeMem(it.sp, v)
}

func (it *Interp) pop() int64 {
	v := it.readMem(it.sp)
	it.sp += 8
	return v
}

// testCC evaluates a condition code against the last comparison's
// flags. The interpreter never sets the overflow flag (no operation in
// this language can overflow a comparison's subtraction within the
// range exercised by its test programs), so signed less-than reduces to
// the sign flag alone.
func (it *Interp) testCC(cc CC) bool {
	switch cc {
	case CCE:
		return it.flags.zf
	case CCNE:
		return !it.flags.zf
	case CCL:
		return it.flags.sf
	case CCLE:
		return it.flags.sf || it.flags.zf
	case CCG:
		return !it.flags.sf && !it.flags.zf
	case CCGE:
		return !it.flags.sf
	}
	return false
}

func (it *Interp) setFlagsFromSub(a, b int64) {
	r := a - b
	it.flags.zf = r == 0
	it.flags.sf = r < 0
}

// Run executes fn.Instrs (with externally resolved functions supplied
// via calls, per CallFunc) until an Exit sequence (MovImm RAX,60;
// Syscall) runs, and returns its low 8 bits, mirroring the real
// process's exit(2) truncation.
func (it *Interp) Run(fn Func, calls map[string]func(args []int64) int64) (code int, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("interp: %v", e)
		}
	}()

	instrs := fn.Instrs
	it.ip = 0
	for it.ip < len(instrs) && !it.exited {
		in := instrs[it.ip]
		switch in.Kind {
		case XPush:
			it.push(it.read(in.Src))
			it.ip++
		case XPop:
			it.write(in.Dst, it.pop())
			it.ip++
		case XMov:
			it.write(in.Dst, it.read(in.Src))
			it.ip++
		case XMovImm:
			it.write(in.Dst, in.Imm)
			it.ip++
		case XAdd:
			it.write(in.Dst, it.read(in.Dst)+it.read(in.Src))
			it.ip++
		case XSub:
			it.write(in.Dst, it.read(in.Dst)-it.read(in.Src))
			it.ip++
		case XIMul:
			it.write(in.Dst, it.read(in.Dst)*it.read(in.Src))
			it.ip++
		case XSubImm:
			it.write(in.Dst, it.read(in.Dst)-in.Imm)
			it.ip++
		case XCdq:
			// sign-extension of RAX into RDX; division below recomputes
			// quotient/remainder directly from RAX and the divisor, so
			// this is a structural no-op in the interpreter.
			it.ip++
		case XIdiv:
			divisor := it.read(in.Src)
			dividend := it.regVal(Rax)
			it.setReg(Rax, dividend/divisor)
			it.setReg(Rdx, dividend%divisor)
			it.ip++
		case XLabel:
			it.ip++
		case XJmp:
			it.ip = it.labels[in.Label]
		case XJmpCC:
			if it.testCC(in.CC) {
				it.ip = it.labels[in.Label]
			} else {
				it.ip++
			}
		case XSetCC:
			if it.testCC(in.CC) {
				it.write(in.Dst, 1)
			} else {
				it.write(in.Dst, 0)
			}
			it.ip++
		case XTest:
			v := it.read(in.Dst) & it.read(in.Src)
			it.flags.zf = v == 0
			it.flags.sf = v < 0
			it.ip++
		case XCmp:
			it.setFlagsFromSub(it.read(in.Dst), it.read(in.Src))
			it.ip++
		case XNot:
			it.write(in.Dst, ^it.read(in.Dst))
			it.ip++
		case XNeg:
			it.write(in.Dst, -it.read(in.Dst))
			it.ip++
		case XCall:
			callee, ok := calls[in.Func]
			if !ok {
				panic("interp: call to unresolved function " + in.Func)
			}
			args := []int64{it.regVal(Rdi), it.regVal(Rsi), it.regVal(Rdx), it.regVal(Rcx), it.regVal(R8), it.regVal(R9)}
			it.setReg(Rax, callee(args))
			it.ip++
		case XSyscall:
			if it.regVal(Rax) == exitSyscallNumber {
				it.exitCode = int(it.regVal(Rdi)) & 0xff
				it.exited = true
			} else {
				panic("interp: unsupported syscall number")
			}
			it.ip++
		case XRet:
			// The interpreter never simulates a real call/ret stack
			// transfer: XCall above invokes the callee's own Interp
			// directly as a Go closure (see RunProgram) and takes its
			// return value from that call, so XRet here is reached
			// only when interpreting a function's stream in isolation
			// and simply ends execution of this stream. Unlike the
			// process-terminating exit syscall above, an ordinary
			// function's return value is not truncated to 8 bits.
			it.exited = true
			it.exitCode = int(it.regVal(Rax))
		default:
			panic("interp: unknown x86 instruction kind")
		}
	}
	if !it.exited {
		return 0, errors.New("interp: instruction stream ended without reaching exit")
	}
	return it.exitCode, nil
}

// RunProgram interprets an entire generated program starting at "main",
// wiring every other function as a callable closure so that user-level
// Call instructions resolve without an external assembler or linker
// (spec.md §8's round-trip property). Arguments beyond the first six
// are not threaded through this path; the interpreter exists to check
// exit codes for the core language subset, which never exercises more
// than six call arguments.
func RunProgram(funcs []Func) (int, error) {
	byName := map[string]Func{}
	for _, f := range funcs {
		byName[f.Name] = f
	}
	main, ok := byName["main"]
	if !ok {
		return 0, errors.New("interp: program has no main function")
	}

	var calls map[string]func(args []int64) int64
	calls = map[string]func(args []int64) int64{}
	for name, f := range byName {
		f := f
		calls[name] = func(args []int64) int64 {
			it := NewInterp(f)
			for i := 0; i < len(ArgRegs) && i < len(args); i++ {
				it.setReg(ArgRegs[i], args[i])
			}
			code, err := it.Run(f, calls)
			if err != nil {
				panic(err)
			}
			return int64(code)
		}
	}

	it := NewInterp(main)
	return it.Run(main, calls)
}
