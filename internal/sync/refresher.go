// Package sync keeps the displayed feed fresh by re-loading it in the
// background and delivering the results as Bubble Tea messages.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/vitrix/updates-center/internal/cache"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = time.Minute

// loadTimeout is the maximum time allowed for a single load.
const loadTimeout = 45 * time.Second

// Loader loads the feed, either honoring the cache or bypassing it.
type Loader interface {
	Load(ctx context.Context) (*cache.Entry, error)
	Refresh(ctx context.Context) (*cache.Entry, error)
}

// FeedLoadedMsg is a tea.Msg sent when a background load completes.
type FeedLoadedMsg struct {
	Entry *cache.Entry
	Err   error

	// Manual is set for loads triggered by RefreshNow.
	Manual bool
}

// Refresher periodically loads the feed. Periodic loads honor the result
// cache, so they only reach the sources once the cached feed expires.
type Refresher struct {
	loader   Loader
	interval time.Duration
	log      logrus.FieldLogger

	resultCh  chan FeedLoadedMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
}

// New creates a Refresher loading from l every interval.
func New(l Loader, interval time.Duration, log logrus.FieldLogger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		loader:    l,
		interval:  interval,
		log:       log,
		resultCh:  make(chan FeedLoadedMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the refresh loop and subscribes to
// its results.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()

	return r.waitForResult()
}

// Stop halts the refresh loop.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopCh)
	r.running = false
}

// RefreshNow triggers an immediate load that bypasses the cache. A trigger
// already pending absorbs this one.
func (r *Refresher) RefreshNow() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next load result.
// Call it after handling a FeedLoadedMsg to keep listening.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}

func (r *Refresher) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.load(false)
		case <-r.triggerCh:
			r.load(true)
		}
	}
}

func (r *Refresher) load(manual bool) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	var (
		e   *cache.Entry
		err error
	)
	if manual {
		e, err = r.loader.Refresh(ctx)
	} else {
		e, err = r.loader.Load(ctx)
	}
	if err != nil {
		r.log.WithError(err).Warn("Background refresh failed")
	}

	r.sendResult(FeedLoadedMsg{Entry: e, Err: err, Manual: manual})
}

// sendResult sends a result without blocking.
func (r *Refresher) sendResult(msg FeedLoadedMsg) {
	select {
	case r.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the loop
	}
}

func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-r.resultCh:
			return msg
		case <-r.stopCh:
			return nil
		}
	}
}
