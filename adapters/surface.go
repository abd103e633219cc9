package adapters

import (
	"sync"

	"github.com/dlgate/download-gate/render"
)

// guardedTarget forwards to a RenderTarget until it is closed. A strategy that outlives its
// attempt (e.g. a timed out script probe) can't touch the surface afterwards.
type guardedTarget struct {
	mu     sync.RWMutex
	target RenderTarget
	closed bool
}

func newGuardedTarget(target RenderTarget) *guardedTarget {
	return &guardedTarget{target: target}
}

func (g *guardedTarget) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *guardedTarget) HasScript(src string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.closed && g.target.HasScript(src)
}

func (g *guardedTarget) InjectScript(src string, attrs map[string]string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false
	}
	return g.target.InjectScript(src, attrs)
}

func (g *guardedTarget) MountInline(el render.Inline) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.closed {
		g.target.MountInline(el)
	}
}

func (g *guardedTarget) BindClickRedirect(url string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.closed {
		g.target.BindClickRedirect(url)
	}
}
