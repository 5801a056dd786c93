package prg

import (
	"errors"

	"github.com/ezrec/eira/cpu"
)

type fixup struct {
	index int
	label string
}

// Builder assembles instruction words into an image, resolving labels to
// absolute addresses.
type Builder struct {
	Base uint32 // Address of the first instruction.

	codes  []cpu.Code
	labels map[string]uint32
	fixups []fixup
	err    error
}

// NewBuilder creates a builder for code executing at base.
func NewBuilder(base uint32) *Builder {
	return &Builder{
		Base:   base,
		labels: map[string]uint32{},
	}
}

// Here returns the address of the next instruction.
func (b *Builder) Here() uint32 {
	return b.Base + uint32(len(b.codes))*cpu.CODE_SIZE
}

// Label names the address of the next instruction.
func (b *Builder) Label(name string) *Builder {
	if _, ok := b.labels[name]; ok {
		b.err = errors.Join(b.err, ErrLabelDuplicate)
		return b
	}

	b.labels[name] = b.Here()
	return b
}

// Lookup returns the address of a label.
func (b *Builder) Lookup(name string) (addr uint32, ok bool) {
	addr, ok = b.labels[name]
	return
}

// Emit appends instruction words.
func (b *Builder) Emit(codes ...cpu.Code) *Builder {
	b.codes = append(b.codes, codes...)
	return b
}

// Branch appends a jmp, breq or brneq to a label.
func (b *Builder) Branch(op cpu.Opcode, label string) *Builder {
	b.fixups = append(b.fixups, fixup{index: len(b.codes), label: label})
	return b.Emit(cpu.MakeBranch(op, 0))
}

// Address appends 'movi rN, #label'.
func (b *Builder) Address(reg int, label string) *Builder {
	b.fixups = append(b.fixups, fixup{index: len(b.codes), label: label})
	return b.Emit(cpu.MakeRegImm(cpu.OP_MOVI, reg, 0))
}

// Codes resolves the labels and returns the instruction words.
func (b *Builder) Codes() (codes []cpu.Code, err error) {
	err = b.err
	if err != nil {
		return
	}

	codes = append([]cpu.Code(nil), b.codes...)
	for _, fix := range b.fixups {
		addr, ok := b.labels[fix.label]
		if !ok {
			err = errors.Join(err, ErrLabelMissing(fix.label))
			continue
		}
		codes[fix.index] = (codes[fix.index] & 0xffff) | cpu.Code(addr<<16)
	}

	if err != nil {
		codes = nil
	}

	return
}

// Image resolves the labels and returns the program image.
func (b *Builder) Image() (img *Image, err error) {
	codes, err := b.Codes()
	if err != nil {
		return
	}

	img = NewImage(codes...)
	return
}
