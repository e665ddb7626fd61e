package operation

import (
	"fmt"
	"sync"
)

// Progress is the shared state between a running archive task and the polling
// caller: a completion fraction, the completion and success flags, and a FIFO
// queue of transcript messages. One mutex guards all fields; the task is the
// sole producer while it runs, the poller the sole consumer.
type Progress struct {
	mu       sync.Mutex
	fraction float64
	complete bool
	success  bool
	messages []string
}

// Snapshot is a consistent view of the progress fields.
type Snapshot struct {
	Fraction float64
	Complete bool
	Success  bool
}

// Step advances the completion fraction by delta, clamped to 1.
func (p *Progress) Step(delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fraction += delta
	if p.fraction > 1 {
		p.fraction = 1
	}
}

// Logf queues a transcript message for the polling side. Safe to call from
// the task goroutine.
func (p *Progress) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, msg)
}

// Finish marks the operation complete. On success the fraction is pinned to 1.
func (p *Progress) Finish(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.complete = true
	p.success = success

	if success {
		p.fraction = 1
	}
}

// Snapshot returns an atomic view of fraction, completion and success.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Fraction: p.fraction,
		Complete: p.complete,
		Success:  p.success,
	}
}

// Drain removes and returns all currently queued messages in FIFO order.
func (p *Progress) Drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.messages
	p.messages = nil

	return msgs
}
