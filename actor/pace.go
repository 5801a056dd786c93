package actor

import (
	"runtime"
	"time"
)

// Pace holds an actor loop at a fixed tick rate.
type Pace struct {
	Hz int // Ticks per second. Zero or less runs unthrottled.
}

// Period returns the duration of one tick.
func (p Pace) Period() time.Duration {
	if p.Hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(p.Hz)
}

// Wait sleeps for one tick. It returns false if done was closed first.
func (p Pace) Wait(done <-chan struct{}) bool {
	period := p.Period()
	if period == 0 {
		select {
		case <-done:
			return false
		default:
		}
		runtime.Gosched()
		return true
	}

	timer := time.NewTimer(period)
	defer timer.Stop()

	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}
