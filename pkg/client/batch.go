package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nicktill/dimcluster/pkg/api"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
)

// Appender is satisfied by *Client
type Appender interface {
	Append(ctx context.Context, name string, rows []cluster.Row, watch *codec.Watch) (*api.AppendResponse, error)
}

// BatchConfig holds configuration for the batcher
type BatchConfig struct {
	MaxBatchSize int
	FlushEvery   time.Duration

	// Watch is sent with every append
	Watch *codec.Watch

	// OnError receives failed appends; the rows of a failed batch are dropped
	OnError func(error)
}

// Batcher buffers rows for one dataset and appends them in batches
type Batcher struct {
	config   BatchConfig
	appender Appender
	dataset  string

	rows []cluster.Row
	mu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	sends  sync.WaitGroup

	// one flush at a time, so a burst of Adds cannot spawn unbounded goroutines
	flushing atomic.Bool
}

// NewBatcher creates a batcher for the named dataset
func NewBatcher(appender Appender, dataset string, config BatchConfig) *Batcher {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 1000
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = 5 * time.Second
	}
	return &Batcher{
		config:   config,
		appender: appender,
		dataset:  dataset,
		rows:     make([]cluster.Row, 0, config.MaxBatchSize),
		done:     make(chan struct{}),
	}
}

// Start begins periodic flushing
func (b *Batcher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	go b.flushLoop()
}

// Add queues a row
func (b *Batcher) Add(row cluster.Row) {
	b.mu.Lock()
	b.rows = append(b.rows, row)
	full := len(b.rows) >= b.config.MaxBatchSize
	b.mu.Unlock()

	if full && b.flushing.CompareAndSwap(false, true) {
		b.sends.Add(1)
		go func() {
			defer b.sends.Done()
			b.flush()
			b.flushing.Store(false)
		}()
	}
}

// Pending returns the number of queued rows
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Flush sends all pending rows synchronously
func (b *Batcher) Flush(ctx context.Context) error {
	rows := b.take()
	if len(rows) == 0 {
		return nil
	}
	_, err := b.appender.Append(ctx, b.dataset, rows, b.config.Watch)
	return err
}

// Stop ends the flush loop, waits for in-flight appends and flushes the rest
func (b *Batcher) Stop() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	b.sends.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Flush(ctx)
}

func (b *Batcher) flushLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.config.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if b.flushing.CompareAndSwap(false, true) {
				b.flush()
				b.flushing.Store(false)
			}
		}
	}
}

func (b *Batcher) flush() {
	rows := b.take()
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := b.appender.Append(ctx, b.dataset, rows, b.config.Watch); err != nil && b.config.OnError != nil {
		b.config.OnError(err)
	}
}

func (b *Batcher) take() []cluster.Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rows) == 0 {
		return nil
	}
	rows := make([]cluster.Row, len(b.rows))
	copy(rows, b.rows)
	b.rows = b.rows[:0]
	return rows
}
