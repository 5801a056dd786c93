// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package actor provides the synchronization shared by the concurrently
// running parts of the machine: the reset barrier, the halt flag, and the
// fixed rate pacing of actor loops.
package actor

import (
	"sync"
)

// Control is the reset barrier and halt flag of one machine boot.
//
// A new Control starts held. Actors Park() at the top of each loop
// iteration; while the barrier is held they block, and once the machine
// halts Park() returns false and the actor exits.
type Control struct {
	mu     sync.Mutex
	cond   *sync.Cond
	held   bool
	halted bool
	parked int
	done   chan struct{}
}

// NewControl creates a held Control.
func NewControl() (ctl *Control) {
	ctl = &Control{
		held: true,
		done: make(chan struct{}),
	}
	ctl.cond = sync.NewCond(&ctl.mu)

	return
}

// Hold raises the reset barrier.
func (ctl *Control) Hold() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	ctl.held = true
}

// Release lowers the reset barrier, waking every parked actor at once.
func (ctl *Control) Release() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	ctl.held = false
	ctl.cond.Broadcast()
}

// Held returns true while the reset barrier is raised.
func (ctl *Control) Held() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	return ctl.held
}

// Park blocks while the reset barrier is held. It returns false if the
// machine has halted.
func (ctl *Control) Park() (running bool) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	ctl.parked++
	ctl.cond.Broadcast()
	for ctl.held && !ctl.halted {
		ctl.cond.Wait()
	}
	ctl.parked--

	running = !ctl.halted
	return
}

// AwaitParked blocks until at least count actors are parked at the held
// barrier, or the machine halts.
func (ctl *Control) AwaitParked(count int) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	for ctl.parked < count && !ctl.halted {
		ctl.cond.Wait()
	}
}

// Parked returns the number of actors currently blocked in Park.
func (ctl *Control) Parked() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	return ctl.parked
}

// Halt sets the panic flag. Every actor observes it on its next Park.
func (ctl *Control) Halt() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	if !ctl.halted {
		ctl.halted = true
		close(ctl.done)
	}
	ctl.cond.Broadcast()
}

// Halted returns true once Halt has been called.
func (ctl *Control) Halted() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	return ctl.halted
}

// Done returns a channel that is closed when the machine halts.
func (ctl *Control) Done() <-chan struct{} {
	return ctl.done
}
