// ABOUTME: Background loop that compacts the journal on an interval
// ABOUTME: Skips a tick when the file is still small

package journal

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCompactInterval is how often the compactor wakes up
	DefaultCompactInterval = 10 * time.Minute

	// DefaultCompactMinSize is the journal size below which a tick is skipped
	DefaultCompactMinSize = 1 << 20
)

// Compactor periodically compacts a recorder's journal
type Compactor struct {
	rec      *Recorder
	interval time.Duration
	minSize  int64
	log      zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewCompactor creates a compactor; interval <= 0 selects the default
func NewCompactor(rec *Recorder, interval time.Duration, log zerolog.Logger) *Compactor {
	if interval <= 0 {
		interval = DefaultCompactInterval
	}
	return &Compactor{
		rec:      rec,
		interval: interval,
		minSize:  DefaultCompactMinSize,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetMinSize changes the size threshold
func (c *Compactor) SetMinSize(n int64) {
	c.minSize = n
}

// Start starts the background loop
func (c *Compactor) Start() {
	go c.run()
}

// Stop stops the loop and waits for it to exit. It is safe to call more
// than once.
func (c *Compactor) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

func (c *Compactor) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := c.CompactIfNeeded(); err != nil {
				c.log.Error().Err(err).Msg("journal compaction failed")
			}
		case <-c.stopCh:
			return
		}
	}
}

// CompactIfNeeded compacts when the journal has reached the size threshold
// and reports whether it did
func (c *Compactor) CompactIfNeeded() (bool, error) {
	j := c.rec.journal
	if j == nil || j.Size() < c.minSize {
		return false, nil
	}
	if err := c.rec.Compact(); err != nil {
		return false, err
	}
	return true, nil
}
