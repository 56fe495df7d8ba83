package ir

// Block is a basic block: an intrusive instruction list ending in exactly
// one terminator (spec.md §3.5). Preds/Idom/DomFrontier are analysis
// caches invalidated by any CFG mutation (see Function.Epoch).
type Block struct {
	ID    int
	Label string
	Func  *Function

	First *Inst
	Last  *Inst

	Preds []*Block
	Succs []*Block

	Idom        *Block
	DomFrontier []*Block
}

// Insts returns the instruction list in stable order.
func (b *Block) Insts() []*Inst {
	var out []*Inst
	for i := b.First; i != nil; i = i.Next {
		out = append(out, i)
	}
	return out
}

// Terminator returns the block's terminator instruction, or nil if the
// block is malformed (no terminator yet).
func (b *Block) Terminator() *Inst {
	if b.Last != nil && b.Last.IsTerminator() {
		return b.Last
	}
	return nil
}

// Phis returns the leading run of PHI instructions.
func (b *Block) Phis() []*Inst {
	var out []*Inst
	for i := b.First; i != nil && i.Op == OpPhi; i = i.Next {
		out = append(out, i)
	}
	return out
}

// Append adds inst at the end of the block's instruction list.
func (b *Block) Append(inst *Inst) {
	inst.Block = b
	if b.Last == nil {
		b.First, b.Last = inst, inst
		return
	}
	inst.Prev = b.Last
	b.Last.Next = inst
	b.Last = inst
}

// Prepend adds inst as the new first instruction (used for phi insertion).
func (b *Block) Prepend(inst *Inst) {
	inst.Block = b
	if b.First == nil {
		b.First, b.Last = inst, inst
		return
	}
	inst.Next = b.First
	b.First.Prev = inst
	b.First = inst
}

// InsertBefore inserts inst immediately before at (used to insert copies
// ahead of a terminator during out-of-SSA, spec.md §4.3.8).
func (b *Block) InsertBefore(at, inst *Inst) {
	inst.Block = b
	inst.Prev = at.Prev
	inst.Next = at
	if at.Prev != nil {
		at.Prev.Next = inst
	} else {
		b.First = inst
	}
	at.Prev = inst
}

// Remove unlinks inst from the block's instruction list.
func (b *Block) Remove(inst *Inst) {
	if inst.Prev != nil {
		inst.Prev.Next = inst.Next
	} else {
		b.First = inst.Next
	}
	if inst.Next != nil {
		inst.Next.Prev = inst.Prev
	} else {
		b.Last = inst.Prev
	}
	inst.Prev, inst.Next, inst.Block = nil, nil, nil
}
