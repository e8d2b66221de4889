package render

import (
	"sync"
	"sync/atomic"

	"github.com/banshee-data/ridealong/internal/monitoring"
)

var logf = monitoring.Component("Render")

// Fanout is a Sink that distributes states to any number of subscribers.
// Each subscriber holds at most one pending state; a slow subscriber has
// its pending state replaced rather than blocking the pusher.
type Fanout struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	latest  *State
	pushes  atomic.Uint64
	dropped atomic.Uint64
}

// Subscription receives states from a Fanout.
type Subscription struct {
	ID     string
	ch     chan State
	doneCh chan struct{}
	once   sync.Once
	fanout *Fanout
}

// FanoutStats contains fan-out counters.
type FanoutStats struct {
	Pushes      uint64
	Replaced    uint64
	Subscribers int
}

// NewFanout creates an empty fan-out.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[string]*Subscription)}
}

// Push delivers s to every subscriber without blocking.
func (f *Fanout) Push(s State) {
	f.mu.Lock()
	f.latest = &s
	subs := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	f.pushes.Add(1)
	for _, sub := range subs {
		if sub.offer(s) {
			f.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber under id. The latest state, if any, is
// delivered immediately.
func (f *Fanout) Subscribe(id string) *Subscription {
	sub := &Subscription{
		ID:     id,
		ch:     make(chan State, 1),
		doneCh: make(chan struct{}),
		fanout: f,
	}

	f.mu.Lock()
	if old, ok := f.subs[id]; ok {
		old.closeLocked()
	}
	f.subs[id] = sub
	latest := f.latest
	n := len(f.subs)
	f.mu.Unlock()

	if latest != nil {
		sub.offer(*latest)
	}
	logf("subscriber connected: %s (total: %d)", id, n)
	return sub
}

// Latest returns the most recent state pushed.
func (f *Fanout) Latest() (State, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return State{}, false
	}
	return *f.latest, true
}

// Stats returns current counters.
func (f *Fanout) Stats() FanoutStats {
	f.mu.RLock()
	n := len(f.subs)
	f.mu.RUnlock()
	return FanoutStats{Pushes: f.pushes.Load(), Replaced: f.dropped.Load(), Subscribers: n}
}

// C returns the channel states are delivered on.
func (s *Subscription) C() <-chan State { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.doneCh }

// Close unregisters the subscription.
func (s *Subscription) Close() {
	f := s.fanout
	f.mu.Lock()
	if cur, ok := f.subs[s.ID]; ok && cur == s {
		delete(f.subs, s.ID)
	}
	s.closeLocked()
	n := len(f.subs)
	f.mu.Unlock()
	logf("subscriber disconnected: %s (remaining: %d)", s.ID, n)
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() { close(s.doneCh) })
}

// offer replaces any undelivered state with st. It reports whether a
// pending state was replaced.
func (s *Subscription) offer(st State) (replaced bool) {
	for {
		select {
		case s.ch <- st:
			return replaced
		default:
		}
		select {
		case <-s.ch:
			replaced = true
		default:
		}
	}
}
