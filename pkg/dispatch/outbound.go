package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/comanda/internal/logging"
	"github.com/panjf2000/ants/v2"
)

// DefaultOutboundWorkers bounds concurrent deliveries.
const DefaultOutboundWorkers = 16

// Outbound runs delivery functions on a goroutine pool. Functions submitted
// for the same key run one after another in submission order.
type Outbound struct {
	pool   *ants.Pool
	logger *slog.Logger

	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewOutbound creates a pool of workers goroutines.
func NewOutbound(workers int, logger *slog.Logger) (*Outbound, error) {
	if workers <= 0 {
		workers = DefaultOutboundWorkers
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Outbound{logger: logger, tails: make(map[string]chan struct{})}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		o.logger.Error("panic in outbound delivery", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create outbound worker pool: %w", err)
	}
	o.pool = pool
	return o, nil
}

// Submit schedules fn after every function previously submitted for key.
// When the pool rejects the task, fn runs on the caller goroutine.
func (o *Outbound) Submit(key string, fn func()) error {
	done := make(chan struct{})

	o.mu.Lock()
	prev := o.tails[key]
	o.tails[key] = done
	o.mu.Unlock()

	task := func() {
		defer o.finish(key, done)
		if prev != nil {
			<-prev
		}
		fn()
	}
	if err := o.pool.Submit(task); err != nil {
		o.logger.Warn("outbound pool rejected delivery, running inline", "key", key, "err", err)
		task()
	}
	return nil
}

func (o *Outbound) finish(key string, done chan struct{}) {
	close(done)
	o.mu.Lock()
	if o.tails[key] == done {
		delete(o.tails, key)
	}
	o.mu.Unlock()
}

// Running reports the number of busy workers.
func (o *Outbound) Running() int {
	return o.pool.Running()
}

// Release waits for pending deliveries and closes the pool.
func (o *Outbound) Release() {
	o.mu.Lock()
	pending := make([]chan struct{}, 0, len(o.tails))
	for _, ch := range o.tails {
		pending = append(pending, ch)
	}
	o.mu.Unlock()
	for _, ch := range pending {
		<-ch
	}
	o.pool.Release()
}
