// Package ir is the minimal stand-in for the IR construction, type
// system, and parsing layers that spec.md §1 explicitly treats as
// external collaborators of the normalization pass. It exists only so
// the pass has something concrete to interpret and rewrite; it does not
// attempt to be a general-purpose compiler IR.
package ir

import (
	"fmt"
	"go/types"
)

// Type is the Go type system's own representation of a value's type,
// consumed (never constructed) by this package: per spec.md §1, "the
// type system and type layout queries" are an external collaborator,
// reached only through the AbstractTypeLayout query (package
// typelayout). Using go/types directly, rather than a bespoke type
// representation, is the donor's own stance throughout analysis/location
// and pkgutil.
type Type = types.Type

// Op is the tagged opcode of an instruction. The donor dispatches on
// opcode with a chain of `case *ssa.X:` type tests inside one large
// method (analysis/absint/absint.go); a language-neutral rendition of
// the same idea is a tagged sum plus a transfer function per variant,
// exactly the alternative spec.md §9 calls out.
type Op int

const (
	OpAllocStack Op = iota
	OpBorrow
	OpBranch
	OpCondBranch
	OpCall
	OpDeallocStack
	OpDeinit
	OpDestructure
	OpElementAddr
	OpEndBorrow
	OpLLVM
	OpLoad
	OpRecord
	OpReturn
	OpStaticBranch
	OpStore
	OpUnreachable
)

func (op Op) String() string {
	switch op {
	case OpAllocStack:
		return "alloc-stack"
	case OpBorrow:
		return "borrow"
	case OpBranch:
		return "branch"
	case OpCondBranch:
		return "cond-branch"
	case OpCall:
		return "call"
	case OpDeallocStack:
		return "dealloc-stack"
	case OpDeinit:
		return "deinit"
	case OpDestructure:
		return "destructure"
	case OpElementAddr:
		return "element-addr"
	case OpEndBorrow:
		return "end-borrow"
	case OpLLVM:
		return "llvm-op"
	case OpLoad:
		return "load"
	case OpRecord:
		return "record"
	case OpReturn:
		return "return"
	case OpStaticBranch:
		return "static-branch"
	case OpStore:
		return "store"
	case OpUnreachable:
		return "unreachable"
	default:
		return "?op"
	}
}

// Convention is a parameter-passing convention, spec.md §4.3/§4.4.
type Convention int

const (
	ConvLet Convention = iota
	ConvInout
	ConvSet
	ConvSink
	ConvYielded
)

func (c Convention) String() string {
	switch c {
	case ConvLet:
		return "let"
	case ConvInout:
		return "inout"
	case ConvSet:
		return "set"
	case ConvSink:
		return "sink"
	case ConvYielded:
		return "yielded"
	default:
		return "?conv"
	}
}

// InstrID addresses an instruction by the block it lives in and a
// monotonically-increasing address assigned at construction time. The
// address is stable across insertions: unlike a slice index, it never
// shifts when an instruction is spliced in before another.
type InstrID struct {
	Block   int
	Address int
}

func (id InstrID) String() string { return fmt.Sprintf("%%%d.%d", id.Block, id.Address) }

// Local names an SSA definition: either one of the function's
// parameters, or the i-th result of a defining instruction.
type Local struct {
	IsParam bool
	Param   int
	Instr   InstrID
	Result  int
}

func ParamLocal(i int) Local { return Local{IsParam: true, Param: i} }

func ResultLocal(id InstrID, i int) Local { return Local{Instr: id, Result: i} }

func (l Local) String() string {
	if l.IsParam {
		return fmt.Sprintf("arg%d", l.Param)
	}
	if l.Result == 0 {
		return l.Instr.String()
	}
	return fmt.Sprintf("%s#%d", l.Instr, l.Result)
}

// Operand is either a compile-time constant (never itself subject to
// consumption, spec.md §4.4 "Consume helper") or a reference to a Local.
type Operand struct {
	IsConst bool
	Const   any
	Local   Local
}

func ConstOperand(v any) Operand    { return Operand{IsConst: true, Const: v} }
func LocalOperand(l Local) Operand  { return Operand{Local: l} }

func (o Operand) String() string {
	if o.IsConst {
		return fmt.Sprintf("%v", o.Const)
	}
	return o.Local.String()
}

// CallArg is one argument to a call instruction together with the
// convention the matching parameter declares.
type CallArg struct {
	Operand Operand
	Conv    Convention
}

// Position is a minimal source range, carried by diagnostics.
type Position struct {
	File      string
	Line, Col int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Instr is a single IR instruction. Only the fields relevant to Op are
// populated; the rest carry zero values. This mirrors the donor's
// *ssa.Instruction hierarchy collapsed into one concrete representation,
// as sanctioned by spec.md §9 ("a tagged sum over opcodes ... no virtual
// base class with a transfer() method is required").
type Instr struct {
	ID   InstrID
	Op   Op
	Pos  Position

	// Number of result registers this instruction defines (0 if none).
	NumResults int

	// Operand usages, meaning depends on Op:
	//   borrow/element-addr/load/dealloc-stack/static-branch: Args[0] is the address.
	//   deinit/return/destructure: Args[0] is the consumed value.
	//   record: Args are the consumed field operands.
	//   store: Args[0] is source, Args[1] is target address.
	//   cond-branch: Args[0] is the condition.
	Args []Operand

	// Borrow convention (borrow only; a sink callee is marked by
	// CalleeSink, call arguments carry their own CallArg.Conv).
	Conv Convention

	// alloc-stack: the type being allocated.
	Type Type

	// call: the callee and its arguments.
	Callee    Operand
	CalleeSink bool
	CallArgs  []CallArg

	// element-addr / destructure: projection path (slot indices).
	Path []int

	// branch / cond-branch: target blocks.
	Targets []int

	// static-branch: predicate name ("initialized" is the only
	// implemented one). A fold replaces the whole instruction with a
	// branch rather than recording an outcome here.
	Predicate string
}

// Result returns the i-th Local this instruction defines.
func (in *Instr) Result(i int) Local { return ResultLocal(in.ID, i) }
