package ir

// Param is one entry in a function's signature (spec.md §4.3).
type Param struct {
	Conv Convention
	Type Type
}

// Block is a basic block: an ordered list of instructions ending in a
// terminator (branch, cond-branch, static-branch, return, unreachable).
type Block struct {
	ID     int
	Instrs []InstrID
}

// Function is the unit the normalization pass operates over.
type Function struct {
	Name   string
	Params []Param
	Blocks []*Block

	instrs  map[InstrID]*Instr
	nextAdr map[int]int // per-block next free address, for fresh InstrIDs
}

// NewFunction constructs an empty function with the given parameter
// signature and a single empty entry block (block 0).
func NewFunction(name string, params []Param) *Function {
	f := &Function{
		Name:    name,
		Params:  params,
		instrs:  make(map[InstrID]*Instr),
		nextAdr: make(map[int]int),
	}
	f.Blocks = []*Block{{ID: 0}}
	return f
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id int) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AddBlock appends a fresh empty block and returns its id.
func (f *Function) AddBlock() int {
	id := len(f.Blocks)
	for _, b := range f.Blocks {
		if b.ID >= id {
			id = b.ID + 1
		}
	}
	f.Blocks = append(f.Blocks, &Block{ID: id})
	return id
}

// Instr looks up an instruction by id (Module's indexed access, §6).
func (f *Function) Instr(id InstrID) *Instr {
	return f.instrs[id]
}

// Append constructs and appends an instruction with a fresh address in
// block `block`, wiring its ID before returning it.
func (f *Function) Append(block int, in Instr) *Instr {
	in.ID = InstrID{Block: block, Address: f.freshAddress(block)}
	stored := in
	f.instrs[in.ID] = &stored
	b := f.Block(block)
	b.Instrs = append(b.Instrs, in.ID)
	return &stored
}

func (f *Function) freshAddress(block int) int {
	a := f.nextAdr[block]
	f.nextAdr[block] = a + 1
	return a
}

// Successors returns the blocks control may transfer to directly after
// `b`, derived from its terminator instruction.
func (f *Function) Successors(b int) []int {
	blk := f.Block(b)
	if blk == nil || len(blk.Instrs) == 0 {
		return nil
	}
	term := f.instrs[blk.Instrs[len(blk.Instrs)-1]]
	switch term.Op {
	case OpBranch:
		return append([]int(nil), term.Targets...)
	case OpCondBranch, OpStaticBranch:
		return append([]int(nil), term.Targets...)
	default:
		return nil
	}
}

// Predecessors computes the reverse of Successors over every live block.
func (f *Function) Predecessors(b int) []int {
	var preds []int
	for _, blk := range f.Blocks {
		for _, s := range f.Successors(blk.ID) {
			if s == b {
				preds = append(preds, blk.ID)
			}
		}
	}
	return preds
}

// BlockIDs returns the ids of every live block, in declaration order.
func (f *Function) BlockIDs() []int {
	ids := make([]int, len(f.Blocks))
	for i, b := range f.Blocks {
		ids[i] = b.ID
	}
	return ids
}

// Entry is always block 0.
func (f *Function) Entry() int { return 0 }
