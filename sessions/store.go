package sessions

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/gate"
	"github.com/dlgate/download-gate/metrics"
	"github.com/dlgate/download-gate/util/task"
	"github.com/patrickmn/go-cache"
)

// Store keeps live gates by id. Gates expire after ttl without access, and a gate leaving the
// store for any reason is disposed.
type Store struct {
	cache *cache.Cache
}

// NewStore builds a Store. A cleanup interval of 0 disables the background sweep, so expired
// gates are only dropped when looked up.
func NewStore(ttl, cleanup time.Duration) *Store {
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		if g, ok := v.(*gate.DownloadGate); ok {
			g.Dispose()
		}
	})
	return &Store{cache: c}
}

func (s *Store) Add(g *gate.DownloadGate) {
	s.cache.SetDefault(g.ID(), g)
}

// Get returns the gate for id and restarts its expiry. A gate deleted between the lookup and the
// refresh is reported as missing rather than put back.
func (s *Store) Get(id string) (*gate.DownloadGate, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	g := v.(*gate.DownloadGate)
	if err := s.cache.Replace(id, g, cache.DefaultExpiration); err != nil {
		return nil, false
	}
	return g, true
}

// Delete removes and disposes the gate for id. It does nothing for unknown ids.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Count is the number of gates which have not expired.
func (s *Store) Count() int {
	return len(s.cache.Items())
}

// Close disposes every gate in the store.
func (s *Store) Close() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
	s.cache.DeleteExpired()
}

// NewActiveGatesTask returns a task which reports the number of live gates every interval.
func NewActiveGatesTask(store *Store, me metrics.MetricsEngine, interval time.Duration, clk clock.Clock) *task.TickerTask {
	return task.NewTickerTaskFromFunc(interval, clk, func() error {
		me.RecordActiveGates(store.Count())
		return nil
	})
}
