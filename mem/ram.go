// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mem

import (
	"encoding/binary"
	"sync"
)

// Ram is the shared machine memory. Every access is bounds checked, and
// multi-byte values are little endian.
type Ram struct {
	mu   sync.RWMutex
	data []byte
}

// NewRam creates a zeroed RAM of RAM_SIZE bytes.
func NewRam() (ram *Ram) {
	ram = &Ram{
		data: make([]byte, RAM_SIZE),
	}

	return
}

// Size returns the RAM size in bytes.
func (ram *Ram) Size() uint32 {
	return uint32(len(ram.data))
}

// check validates an access of size bytes at addr.
func (ram *Ram) check(addr uint32, size int) (err error) {
	if uint64(addr)+uint64(size) > uint64(len(ram.data)) {
		err = &ErrAddress{Addr: addr, Size: size}
	}
	return
}

// Byte reads one byte.
func (ram *Ram) Byte(addr uint32) (value uint8, err error) {
	ram.mu.RLock()
	defer ram.mu.RUnlock()

	err = ram.check(addr, 1)
	if err != nil {
		return
	}

	value = ram.data[addr]
	return
}

// SetByte writes one byte.
func (ram *Ram) SetByte(addr uint32, value uint8) (err error) {
	ram.mu.Lock()
	defer ram.mu.Unlock()

	err = ram.check(addr, 1)
	if err != nil {
		return
	}

	ram.data[addr] = value
	return
}

// Word reads a 16-bit little endian value.
func (ram *Ram) Word(addr uint32) (value uint16, err error) {
	ram.mu.RLock()
	defer ram.mu.RUnlock()

	err = ram.check(addr, 2)
	if err != nil {
		return
	}

	value = binary.LittleEndian.Uint16(ram.data[addr:])
	return
}

// SetWord writes a 16-bit little endian value.
func (ram *Ram) SetWord(addr uint32, value uint16) (err error) {
	ram.mu.Lock()
	defer ram.mu.Unlock()

	err = ram.check(addr, 2)
	if err != nil {
		return
	}

	binary.LittleEndian.PutUint16(ram.data[addr:], value)
	return
}

// Long reads a 32-bit little endian value, as used for instruction fetch.
func (ram *Ram) Long(addr uint32) (value uint32, err error) {
	ram.mu.RLock()
	defer ram.mu.RUnlock()

	err = ram.check(addr, 4)
	if err != nil {
		return
	}

	value = binary.LittleEndian.Uint32(ram.data[addr:])
	return
}

// Read copies len(buf) bytes starting at addr into buf.
func (ram *Ram) Read(addr uint32, buf []byte) (err error) {
	ram.mu.RLock()
	defer ram.mu.RUnlock()

	err = ram.check(addr, len(buf))
	if err != nil {
		return
	}

	copy(buf, ram.data[addr:])
	return
}

// Write copies data into RAM starting at addr. Nothing is written if the
// block does not fit.
func (ram *Ram) Write(addr uint32, data []byte) (err error) {
	ram.mu.Lock()
	defer ram.mu.Unlock()

	err = ram.check(addr, len(data))
	if err != nil {
		return
	}

	copy(ram.data[addr:], data)
	return
}

// Fill sets count bytes starting at addr to value.
func (ram *Ram) Fill(addr uint32, count int, value uint8) (err error) {
	ram.mu.Lock()
	defer ram.mu.Unlock()

	err = ram.check(addr, count)
	if err != nil {
		return
	}

	region := ram.data[addr : int(addr)+count]
	for n := range region {
		region[n] = value
	}
	return
}

// Clear zeros all of RAM.
func (ram *Ram) Clear() {
	ram.mu.Lock()
	defer ram.mu.Unlock()

	clear(ram.data)
}

// Snapshot returns a copy of the whole RAM.
func (ram *Ram) Snapshot() (data []byte) {
	ram.mu.RLock()
	defer ram.mu.RUnlock()

	data = make([]byte, len(ram.data))
	copy(data, ram.data)
	return
}
