package resilience

import "sync"

// SingleFlight collapses concurrent calls that share a key: the first
// caller runs fn, everyone else waits for that result. The key is
// released once the leader finishes, so a later call runs fn again.
type SingleFlight struct {
	mu       sync.Mutex
	inFlight map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do returns fn's result and whether it was shared from another caller's
// in-flight execution.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if f, ok := g.inFlight[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight{done: make(chan struct{})}
	if g.inFlight == nil {
		g.inFlight = make(map[string]*flight)
	}
	g.inFlight[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
	close(f.done)

	return f.val, f.err, false
}
