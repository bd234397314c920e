package throttle

import "sync"

// entry is one queued request: the symbol plus its completion callback.
type entry struct {
	symbol string
	done   func(bool)
}

// pool is a concurrency-safe FIFO supporting bounded drains. Producers
// append concurrently; the flush task is the single draining consumer.
// Capacity is unbounded.
type pool struct {
	mu      sync.Mutex
	entries []entry

	totalQueued  int64
	totalDrained int64
}

// add appends an entry. Never blocks.
func (p *pool) add(e entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, e)
	p.totalQueued++
}

// drain atomically removes and returns up to max entries in enqueue
// order. Entries added after the drain begins stay for the next cycle.
func (p *pool) drain(max int) []entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.entries)
	if n == 0 || max < 1 {
		return nil
	}
	if n > max {
		n = max
	}

	drained := make([]entry, n)
	copy(drained, p.entries[:n])

	remaining := len(p.entries) - n
	copy(p.entries, p.entries[n:])
	for i := remaining; i < len(p.entries); i++ {
		p.entries[i] = entry{} // release callback references
	}
	p.entries = p.entries[:remaining]
	p.totalDrained += int64(n)

	return drained
}

// size returns the current queue depth.
func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
