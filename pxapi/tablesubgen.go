package pxapi

import "sync"

// TableSubGenerator yields a TableSub for each table the server
// announces, in the order its metadata first appears on the stream.
type TableSubGenerator struct {
	mu     sync.Mutex
	items  []*TableSub
	closed bool
	err    error
	signal chan struct{}
}

func newTableSubGenerator() *TableSubGenerator {
	return &TableSubGenerator{signal: make(chan struct{}, 1)}
}

func (g *TableSubGenerator) wake() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}

func (g *TableSubGenerator) push(t *TableSub) {
	g.mu.Lock()
	if !g.closed {
		g.items = append(g.items, t)
	}
	g.mu.Unlock()
	g.wake()
}

func (g *TableSubGenerator) closeOK() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.wake()
}

func (g *TableSubGenerator) closeErr(err error) {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		g.err = err
	}
	g.mu.Unlock()
	g.wake()
}

// Next blocks until another table is announced, the run completes, or
// it fails. ok is false once the generator is exhausted; callers
// should then check Err.
func (g *TableSubGenerator) Next() (table *TableSub, ok bool) {
	for {
		g.mu.Lock()
		if len(g.items) > 0 {
			t := g.items[0]
			g.items = g.items[1:]
			g.mu.Unlock()
			return t, true
		}
		if g.closed {
			g.mu.Unlock()
			return nil, false
		}
		g.mu.Unlock()
		<-g.signal
	}
}

// Err returns the error that ended generation, if any.
func (g *TableSubGenerator) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
