// Package async holds the small primitives shared by the asynchronous
// providers: stale-result tokens and clock-driven debouncing.
package async

import (
	"context"
	"sync"
)

// Token identifies one issued request. Results carrying a token that is no
// longer current are discarded.
type Token uint64

// Generation hands out monotonically increasing tokens. Issuing a new token
// cancels the context of the previous one.
type Generation struct {
	mu     sync.Mutex
	n      Token
	cancel context.CancelFunc
}

// Next supersedes any in-flight request and returns a token and a context
// derived from parent that is cancelled when the token is superseded.
func (g *Generation) Next(parent context.Context) (Token, context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.n++
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	return g.n, ctx
}

// Current reports whether tok is the latest token issued.
func (g *Generation) Current(tok Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return tok == g.n && tok != 0
}

// Invalidate makes every outstanding token stale.
func (g *Generation) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.n++
}
