package metrics

import "time"

// Snapshot is the coordinator state the collector polls. pkg/bench's
// coordinator implements StateProvider so this package never imports it
// directly — the dependency runs the other way, same as the rest of the
// ambient stack.
type Snapshot struct {
	Server      string
	Operation   string
	Concurrency int
}

// StateProvider is implemented by whatever is running the benchmark.
type StateProvider interface {
	Snapshot() Snapshot
}

// Collector periodically snapshots a StateProvider into the RunInfo and
// ConcurrencyCurrent gauges so a scraper sees an up-to-date view of a
// long-running benchmark.
type Collector struct {
	provider StateProvider
	stopCh   chan struct{}

	lastServer    string
	lastOperation string
}

// NewCollector creates a collector over the given state provider.
func NewCollector(provider StateProvider) *Collector {
	return &Collector{
		provider: provider,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting on a fixed interval, in its own goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts collection.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	snap := c.provider.Snapshot()

	ConcurrencyCurrent.Set(float64(snap.Concurrency))

	if snap.Server != c.lastServer || snap.Operation != c.lastOperation {
		if c.lastServer != "" || c.lastOperation != "" {
			RunInfo.WithLabelValues(c.lastServer, c.lastOperation).Set(0)
		}
		c.lastServer = snap.Server
		c.lastOperation = snap.Operation
	}
	if snap.Server != "" || snap.Operation != "" {
		RunInfo.WithLabelValues(snap.Server, snap.Operation).Set(1)
	}
}
