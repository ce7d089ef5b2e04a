package loop

import (
	"runtime"
	"time"
)

// Scheduler decides when the next loop tick runs.
type Scheduler interface {
	// Wait blocks until the next tick is due. It returns false once stop is
	// closed, and must not fire a tick after that.
	Wait(stop <-chan struct{}) bool
	// Release frees any timer held by the scheduler.
	Release()
}

// VsyncScheduler paces ticks to a display refresh rate.
type VsyncScheduler struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewVsyncScheduler creates a scheduler firing refreshHz times per second.
func NewVsyncScheduler(refreshHz int) *VsyncScheduler {
	if refreshHz <= 0 {
		refreshHz = 60
	}
	return &VsyncScheduler{interval: time.Second / time.Duration(refreshHz)}
}

// Wait implements Scheduler.
func (s *VsyncScheduler) Wait(stop <-chan struct{}) bool {
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.interval)
	}
	select {
	case <-stop:
		return false
	case <-s.ticker.C:
		// stop wins a tie so no tick starts after teardown
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
}

// Release implements Scheduler.
func (s *VsyncScheduler) Release() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// UncappedScheduler continues immediately, yielding to the runtime between
// ticks. Benchmarking only.
type UncappedScheduler struct{}

// Wait implements Scheduler.
func (UncappedScheduler) Wait(stop <-chan struct{}) bool {
	runtime.Gosched()
	select {
	case <-stop:
		return false
	default:
		return true
	}
}

// Release implements Scheduler.
func (UncappedScheduler) Release() {}
