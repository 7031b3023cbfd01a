package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints a single updating status line for a long run.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	done     int
	every    int
	reported int
	started  time.Time
	running  bool
}

// NewProgress reports to w every `every` records out of total.
func NewProgress(w io.Writer, total, every int) *Progress {
	if w == nil {
		w = io.Discard
	}
	if every < 1 {
		every = 1
	}
	return &Progress{w: w, total: total, every: every}
}

// Start resets the counters and the clock.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = time.Now()
	p.running = true
	p.done = 0
	p.reported = 0
}

// Add records n more processed records.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

// Done prints the final line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.print()
	fmt.Fprintln(p.w)
	p.running = false
}

// Processed returns the number of records counted so far.
func (p *Progress) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Elapsed returns the time since Start.
func (p *Progress) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.IsZero() {
		return 0
	}
	return time.Since(p.started)
}

// print writes the status line. Callers hold mu.
func (p *Progress) print() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := float64(p.done) / max(time.Since(p.started).Seconds(), 1e-9)
	fmt.Fprintf(p.w, "\rReindexed %d/%d records (%.1f%%) - %.1f records/s", p.done, p.total, pct, rate)
}
