package pool

import (
	"context"
	"sync"

	"github.com/joeycumines/go-tuitest/harness"
	"github.com/joeycumines/go-tuitest/terminal"
)

// Guard holds a terminal acquired from a Pool. Release it with defer, so
// it is returned on every path, including panics:
//
//	g, err := pool.Acquire(ctx, p, 80, 24)
//	if err != nil {
//		return err
//	}
//	defer g.Release()
type Guard struct {
	pool *Pool
	term *terminal.Terminal
	id   TerminalID
	once sync.Once
	err  error
}

// Acquire acquires a terminal from p, see Pool.Acquire.
func Acquire(ctx context.Context, p *Pool, width, height uint16) (*Guard, error) {
	id, term, err := p.Acquire(ctx, width, height)
	if err != nil {
		return nil, err
	}
	return &Guard{pool: p, term: term, id: id}, nil
}

// Terminal returns the acquired terminal.
func (g *Guard) Terminal() *terminal.Terminal { return g.term }

// ID returns the pool ID of the acquired terminal.
func (g *Guard) ID() TerminalID { return g.id }

// Harness creates a harness over the acquired terminal. Closing the harness
// kills its process, but the terminal stays held until Release.
func (g *Guard) Harness(opts ...harness.Option) (*harness.Harness, error) {
	return harness.NewWithTerminal(g.term, opts...)
}

// Release returns the terminal to the pool. Subsequent calls return the
// result of the first.
func (g *Guard) Release() error {
	g.once.Do(func() {
		g.err = g.pool.Release(g.id)
	})
	return g.err
}
