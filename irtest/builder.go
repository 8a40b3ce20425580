// Package irtest is a fluent literal builder for package ir, used by
// this pass's own tests and by normalize's seed-scenario tests. The
// donor builds its SSA test fixtures by parsing real Go source through
// testutil's //@ annotation loader; this pass's IR has no surface
// syntax to parse; a literal builder is the natural equivalent, in the
// same spirit as testutil's factory methods but operating directly on
// ir.Instr values instead of *ssa.Instruction.
package irtest

import "github.com/ownlang/objnorm/ir"

// Builder constructs one ir.Function (and its owning ir.Module) block
// by block. The zero value is not usable; start from NewFunction.
type Builder struct {
	module *ir.Module
	fn     *ir.Function
	block  int
}

// NewFunction starts a builder for a fresh function with the given
// parameter signature, positioned at the entry block.
func NewFunction(name string, params ...ir.Param) *Builder {
	fn := ir.NewFunction(name, params)
	m := ir.NewModule()
	m.AddFunction(fn)
	return &Builder{module: m, fn: fn, block: fn.Entry()}
}

func (b *Builder) Module() *ir.Module     { return b.module }
func (b *Builder) Function() *ir.Function { return b.fn }
func (b *Builder) Block() int             { return b.block }

// NewBlock appends a fresh empty block to the function and returns its
// id, without moving the builder's cursor.
func (b *Builder) NewBlock() int { return b.fn.AddBlock() }

// In returns a copy of the builder positioned at the given block,
// leaving the receiver (and any other outstanding copy) untouched —
// the fluent equivalent of switching which block subsequent calls
// append to.
func (b *Builder) In(block int) *Builder {
	nb := *b
	nb.block = block
	return &nb
}

func (b *Builder) emit(in ir.Instr) *ir.Instr {
	return b.fn.Append(b.block, in)
}

// Param returns the local naming the i-th parameter, for use as an
// operand before any instruction has bound it.
func (b *Builder) Param(i int) ir.Local { return ir.ParamLocal(i) }

func (b *Builder) AllocStack(ty ir.Type) ir.Local {
	return b.emit(ir.Instr{Op: ir.OpAllocStack, Type: ty, NumResults: 1}).Result(0)
}

func (b *Builder) Borrow(conv ir.Convention, addr ir.Local) ir.Local {
	return b.emit(ir.Instr{
		Op: ir.OpBorrow, Conv: conv,
		Args: []ir.Operand{ir.LocalOperand(addr)}, NumResults: 1,
	}).Result(0)
}

func (b *Builder) Branch(to int) {
	b.emit(ir.Instr{Op: ir.OpBranch, Targets: []int{to}})
}

func (b *Builder) CondBranch(cond ir.Operand, tTrue, tFalse int) {
	b.emit(ir.Instr{Op: ir.OpCondBranch, Args: []ir.Operand{cond}, Targets: []int{tTrue, tFalse}})
}

func (b *Builder) Call(callee ir.Operand, calleeSink bool, args []ir.CallArg, numResults int) []ir.Local {
	in := b.emit(ir.Instr{
		Op: ir.OpCall, Callee: callee, CalleeSink: calleeSink,
		CallArgs: args, NumResults: numResults,
	})
	results := make([]ir.Local, numResults)
	for i := range results {
		results[i] = in.Result(i)
	}
	return results
}

func (b *Builder) DeallocStack(addr ir.Local) {
	b.emit(ir.Instr{Op: ir.OpDeallocStack, Args: []ir.Operand{ir.LocalOperand(addr)}})
}

func (b *Builder) Deinit(v ir.Operand) {
	b.emit(ir.Instr{Op: ir.OpDeinit, Args: []ir.Operand{v}})
}

func (b *Builder) Destructure(whole ir.Operand, numResults int) []ir.Local {
	in := b.emit(ir.Instr{Op: ir.OpDestructure, Args: []ir.Operand{whole}, NumResults: numResults})
	results := make([]ir.Local, numResults)
	for i := range results {
		results[i] = in.Result(i)
	}
	return results
}

func (b *Builder) ElementAddr(base ir.Local, path ...int) ir.Local {
	return b.emit(ir.Instr{
		Op: ir.OpElementAddr, Args: []ir.Operand{ir.LocalOperand(base)},
		Path: path, NumResults: 1,
	}).Result(0)
}

func (b *Builder) EndBorrow(addr ir.Local) {
	b.emit(ir.Instr{Op: ir.OpEndBorrow, Args: []ir.Operand{ir.LocalOperand(addr)}})
}

func (b *Builder) LLVMOp(numResults int) []ir.Local {
	in := b.emit(ir.Instr{Op: ir.OpLLVM, NumResults: numResults})
	results := make([]ir.Local, numResults)
	for i := range results {
		results[i] = in.Result(i)
	}
	return results
}

func (b *Builder) Load(addr ir.Local) ir.Local {
	return b.emit(ir.Instr{Op: ir.OpLoad, Args: []ir.Operand{ir.LocalOperand(addr)}, NumResults: 1}).Result(0)
}

func (b *Builder) Record(ops ...ir.Operand) ir.Local {
	return b.emit(ir.Instr{Op: ir.OpRecord, Args: ops, NumResults: 1}).Result(0)
}

func (b *Builder) Return(o ...ir.Operand) {
	b.emit(ir.Instr{Op: ir.OpReturn, Args: o})
}

func (b *Builder) StaticBranch(predicate string, subject ir.Operand, tTrue, tFalse int) {
	b.emit(ir.Instr{
		Op: ir.OpStaticBranch, Predicate: predicate,
		Args: []ir.Operand{subject}, Targets: []int{tTrue, tFalse},
	})
}

func (b *Builder) Store(source, target ir.Operand) {
	b.emit(ir.Instr{Op: ir.OpStore, Args: []ir.Operand{source, target}})
}

func (b *Builder) Unreachable() {
	b.emit(ir.Instr{Op: ir.OpUnreachable})
}
