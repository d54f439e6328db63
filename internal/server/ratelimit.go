package server

import (
	"sync"
	"time"
)

// rateLimiter grants each client a fixed number of requests per window.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start time.Time
	used  int
}

func newRateLimiter(perMinute int) *rateLimiter {
	rl := &rateLimiter{
		limit:   perMinute,
		window:  time.Minute,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.evictIdle(5 * time.Minute)
	return rl
}

func (rl *rateLimiter) evictIdle(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for client, w := range rl.clients {
				if now.Sub(w.start) >= rl.window {
					delete(rl.clients, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) allow(client string) bool {
	ok, _ := rl.take(client)
	return ok
}

// take consumes one request for client. When the budget is spent it
// reports how long until the window resets.
func (rl *rateLimiter) take(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[client] = &clientWindow{start: now, used: 1}
		return true, 0
	}
	if w.used >= rl.limit {
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.used++
	return true, 0
}
