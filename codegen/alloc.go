package codegen

import (
	"github.com/ericwu2003/tcc/compileerr"
	"github.com/ericwu2003/tcc/tac"
)

// Allocator assigns every TAC identifier a frame-relative memory
// location by a single forward pass over the instruction list, per
// spec.md §4.3: no spills, no reuse, no liveness, uniform slot size in
// first-write order. Slots are 8 bytes wide rather than spec.md §4.3's
// literal 4: this generator moves every value through a full 64-bit
// register regardless of its declared Size (no 32-bit sub-register
// tracking), so an 8-byte stride is the slot width that actually keeps
// adjacent identifiers from overlapping under a 64-bit mov — the same
// "deliberately coarse" spirit as the rest of the allocator, widened by
// one necessary notch. Array base identifiers (IAllocArray) additionally
// reserve a contiguous region beyond the uniform scalar area — a
// necessary supplement, since spec.md's allocator was specified before
// array support existed (spec.md §9 calls arrays "a declared extension
// point").
type Allocator struct {
	loc        map[tac.Ident]int
	arrayBase  map[tac.Ident]int
	frameBytes int
}

// Build runs the allocator's single forward pass over instrs. params are
// the function's parameter identifiers: they are defined on entry rather
// than by any instruction, so they get the first slots before the pass.
func Build(instrs []tac.Instr, params ...tac.Ident) *Allocator {
	seen := map[tac.Ident]bool{}
	loc := map[tac.Ident]int{}
	var order []tac.Ident

	const slotBytes = 8

	assign := func(id tac.Ident) {
		order = append(order, id)
		loc[id] = len(order) * slotBytes
		seen[id] = true
	}
	for _, p := range params {
		assign(p)
	}

	type arrRegion struct {
		id    tac.Ident
		bytes int
	}
	var regions []arrRegion

	for _, instr := range instrs {
		for _, id := range instr.ReadIdents() {
			if !seen[id] {
				compileerr.Fail("tac identifier %v read before any write", id)
			}
		}
		if instr.Kind == tac.IAllocArray {
			if seen[instr.Dst] {
				compileerr.Fail("array base identifier %v allocated twice", instr.Dst)
			}
			assign(instr.Dst)
			regions = append(regions, arrRegion{id: instr.Dst, bytes: instr.Bytes})
			continue
		}
		if w, ok := instr.WrittenIdent(); ok {
			if !seen[w] {
				assign(w)
			}
		}
	}

	scalarBytes := len(order) * slotBytes
	arrayBase := map[tac.Ident]int{}
	off := scalarBytes
	for _, r := range regions {
		off += r.bytes
		arrayBase[r.id] = off
	}

	frame := off
	if rem := frame % 16; rem != 0 {
		frame += 16 - rem
	}

	return &Allocator{loc: loc, arrayBase: arrayBase, frameBytes: frame}
}

// Loc returns id's assigned frame-relative memory location.
func (a *Allocator) Loc(id tac.Ident) Loc {
	off, ok := a.loc[id]
	if !ok {
		compileerr.Fail("tac identifier %v was never allocated a location", id)
	}
	return MemLoc(off)
}

// ArrayBaseOffset returns the rbp-relative offset of the first byte of
// the array region reserved for the AllocArray instruction that wrote
// base (i.e. the lowest address of the region; address = rbp - offset).
func (a *Allocator) ArrayBaseOffset(base tac.Ident) int {
	off, ok := a.arrayBase[base]
	if !ok {
		compileerr.Fail("tac identifier %v has no reserved array region", base)
	}
	return off
}

// FrameBytes returns the total stack frame size, already rounded up to
// a 16-byte multiple so that call sites can re-align RSP for outgoing
// stack-passed arguments by parity alone (spec.md §9).
func (a *Allocator) FrameBytes() int { return a.frameBytes }
