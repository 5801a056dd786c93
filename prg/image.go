// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package prg implements the program image format and the loader that
// places programs in machine memory.
//
// A program image is a 16 byte little endian header followed by the code
// segment:
//
//	magic:u32 | reserved1:u32 | reserved2:u32 | code_size:u32 | code...
package prg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ezrec/eira/cpu"
	"github.com/ezrec/eira/mem"
)

const (
	PRG_MAGIC       = 0xe113a100 // Program header magic.
	PRG_HEADER_SIZE = 16         // Program header size in bytes.

	// PRG_CODE_MAX is the largest code segment that fits in the program region.
	PRG_CODE_MAX = mem.RAM_SIZE - mem.MEM_START_PRG - PRG_HEADER_SIZE

	// PRG_ENTRY is the address of the first instruction of a loaded program.
	PRG_ENTRY = mem.MEM_START_PRG + PRG_HEADER_SIZE
)

// Header is the program image header.
type Header struct {
	Magic     uint32
	Reserved1 uint32
	Reserved2 uint32
	CodeSize  uint32
}

// Image is a program image.
type Image struct {
	Header
	Code []byte
}

// NewImage creates an image from instruction words.
func NewImage(codes ...cpu.Code) (img *Image) {
	img = &Image{
		Header: Header{
			Magic:     PRG_MAGIC,
			Reserved1: 1,
			Reserved2: 1,
		},
	}

	for _, code := range codes {
		img.Code = binary.LittleEndian.AppendUint32(img.Code, uint32(code))
	}
	img.CodeSize = uint32(len(img.Code))

	return
}

// Validate checks the header against the code segment.
func (img *Image) Validate() (err error) {
	switch {
	case img.Magic != PRG_MAGIC:
		err = ErrMagic
	case img.CodeSize > PRG_CODE_MAX:
		err = ErrTooLarge
	case uint32(len(img.Code)) < img.CodeSize:
		err = ErrShort
	}

	return
}

// ReadImage reads and validates a program image.
func ReadImage(r io.Reader) (img *Image, err error) {
	img = &Image{}

	err = binary.Read(r, binary.LittleEndian, &img.Header)
	if err != nil {
		err = errors.Join(ErrHeader, err)
		img = nil
		return
	}

	if img.Magic != PRG_MAGIC {
		err = ErrMagic
		img = nil
		return
	}
	if img.CodeSize > PRG_CODE_MAX {
		err = ErrTooLarge
		img = nil
		return
	}

	img.Code = make([]byte, img.CodeSize)
	_, err = io.ReadFull(r, img.Code)
	if err != nil {
		err = errors.Join(ErrShort, err)
		img = nil
		return
	}

	return
}

// MarshalBinary encodes the image.
func (img *Image) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer

	err = binary.Write(&buf, binary.LittleEndian, &img.Header)
	if err != nil {
		return
	}
	buf.Write(img.Code)

	data = buf.Bytes()
	return
}

// UnmarshalBinary decodes an image.
func (img *Image) UnmarshalBinary(data []byte) (err error) {
	read, err := ReadImage(bytes.NewReader(data))
	if err != nil {
		return
	}

	*img = *read
	return
}

// Codes iterates over the instruction words of the code segment, by
// offset into the segment.
func (img *Image) Codes() iter.Seq2[uint32, cpu.Code] {
	return func(yield func(offset uint32, code cpu.Code) bool) {
		size := min(img.CodeSize, uint32(len(img.Code)))
		for offset := uint32(0); offset+cpu.CODE_SIZE <= size; offset += cpu.CODE_SIZE {
			code := cpu.Code(binary.LittleEndian.Uint32(img.Code[offset:]))
			if !yield(offset, code) {
				return
			}
		}
	}
}

// Disassemble writes a listing of the code segment as loaded at base.
func (img *Image) Disassemble(w io.Writer, base uint32) (err error) {
	for offset, code := range img.Codes() {
		_, err = fmt.Fprintf(w, "%04x: %08x  %v\n", base+offset, uint32(code), code)
		if err != nil {
			return
		}
	}

	return
}
