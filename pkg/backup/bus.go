package backup

import "sync"

// Bus is the unbounded progress queue between the crawl loop and the
// polling consumer. Publish never blocks, so a slow or absent consumer
// can never stall a page; the consumer drains whatever has accumulated
// on each poll tick.
type Bus struct {
	mu    sync.Mutex
	lines []string
}

// NewBus creates an empty progress bus
func NewBus() *Bus {
	return &Bus{}
}

// Publish appends one line to the queue
func (b *Bus) Publish(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
}

// Drain removes and returns all currently queued lines without
// blocking. An empty queue yields nil.
func (b *Bus) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return nil
	}
	drained := b.lines
	b.lines = nil
	return drained
}
