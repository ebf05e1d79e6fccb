package httpclient

import (
	"net/url"
	"sync"
)

// HostSemaphore caps concurrent requests per provider host. Many tenants
// point at the same handful of providers, so a burst of simultaneous ingests
// would otherwise open dozens of connections to one panel and get the whole
// service IP banned.
//
//	release := GlobalHostSem.Acquire(rawURL)
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// GlobalHostSem is shared by every client in the process: 4 concurrent
// requests per provider host.
var GlobalHostSem = NewHostSemaphore(4)

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Acquire blocks until a slot opens for rawURL's host and returns the release
// func. Two URLs on the same scheme+host share a slot pool regardless of path.
func (h *HostSemaphore) Acquire(rawURL string) func() {
	sem := h.semFor(hostKey(rawURL))
	sem <- struct{}{}
	return func() { <-sem }
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

func (h *HostSemaphore) semFor(key string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[key]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[key] = s
	}
	return s
}
