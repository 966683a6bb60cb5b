package service

import "sync"

// Gate marks a remote snapshot application in progress. It is entered
// before the store replaces its collections and released only after
// every subscribed listener has run, so anything that would broadcast
// a local change can check Held synchronously and stay quiet while
// remote state settles.
type Gate struct {
	mu   sync.Mutex
	held bool
}

func (g *Gate) Enter() {
	g.mu.Lock()
	g.held = true
	g.mu.Unlock()
}

func (g *Gate) Exit() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}

func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
