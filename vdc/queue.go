package vdc

import (
	"sync"

	"github.com/ezrec/eira/cpu"
)

// INSTR_LIST_SIZE is the capacity of the instruction queue.
const INSTR_LIST_SIZE = 32

// Queue is the locked FIFO of display instructions between the CPU and
// the VDC.
type Queue struct {
	mu   sync.Mutex
	list []cpu.Code
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.list = q.list[:0]
}

// Push appends an instruction. A full queue is left unchanged.
func (q *Queue) Push(code cpu.Code) (err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.list) >= INSTR_LIST_SIZE {
		err = ErrQueueFull
		return
	}

	q.list = append(q.list, code)
	return
}

// Pop removes the oldest instruction. An empty queue yields diwait.
func (q *Queue) Pop() (code cpu.Code) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.list) == 0 {
		code = cpu.Code(cpu.OP_DIWAIT)
		return
	}

	code = q.list[0]
	copy(q.list, q.list[1:])
	q.list = q.list[:len(q.list)-1]

	return
}

// Len returns the number of queued instructions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.list)
}
