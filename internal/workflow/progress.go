package workflow

import (
	"sync"
	"time"
)

const (
	ProgressInterval = 200 * time.Millisecond
	ProgressStep     = 10
	ProgressCap      = 90
)

// Progress is the cosmetic upload indicator. It advances by ProgressStep
// every ProgressInterval up to ProgressCap and carries no meaning beyond
// showing that the upload is still running.
type Progress struct {
	clock    Clock
	onChange func(int)

	mu    sync.Mutex
	value int
	timer Timer
	gen   uint64
}

// NewProgress creates an idle indicator. onChange, if set, receives every
// new value.
func NewProgress(clock Clock, onChange func(int)) *Progress {
	return &Progress{clock: clock, onChange: onChange}
}

// Start resets the indicator to zero and begins ticking. A running schedule
// is cancelled first.
func (p *Progress) Start() {
	p.mu.Lock()
	p.cancelLocked()
	p.value = 0
	p.scheduleLocked()
	p.mu.Unlock()
	p.emit(0)
}

// Complete stops ticking and snaps the indicator to 100.
func (p *Progress) Complete() {
	p.finish(100)
}

// Fail stops ticking and resets the indicator to zero.
func (p *Progress) Fail() {
	p.finish(0)
}

func (p *Progress) finish(value int) {
	p.mu.Lock()
	p.cancelLocked()
	p.value = value
	p.mu.Unlock()
	p.emit(value)
}

// Value returns the current percentage.
func (p *Progress) Value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Running reports whether a tick is scheduled.
func (p *Progress) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *Progress) scheduleLocked() {
	gen := p.gen
	p.timer = p.clock.AfterFunc(ProgressInterval, func() { p.tick(gen) })
}

func (p *Progress) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

func (p *Progress) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		// cancelled after the timer fired
		p.mu.Unlock()
		return
	}
	p.value += ProgressStep
	if p.value >= ProgressCap {
		p.value = ProgressCap
		p.timer = nil
	} else {
		p.scheduleLocked()
	}
	value := p.value
	p.mu.Unlock()
	p.emit(value)
}

func (p *Progress) emit(value int) {
	if p.onChange != nil {
		p.onChange(value)
	}
}
