package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/comanda/internal/logging"
	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

const (
	DefaultShards    = 8
	DefaultQueueSize = 256
)

// ErrClosed is returned when dispatching to a closed Dispatcher.
var ErrClosed = errors.New("dispatcher closed")

// Task is a unit of work bound to a conversation key.
type Task func(ctx context.Context)

type hasher struct{}

func (hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type job struct {
	ctx  context.Context
	key  string
	task Task
}

type shard struct {
	name  string
	queue chan job
}

func (s *shard) String() string {
	return s.name
}

// Dispatcher serializes tasks per key across a fixed set of shards.
type Dispatcher struct {
	ring   *consistent.Consistent
	shards map[string]*shard

	queueSize int
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize bounds each shard queue. Dispatch blocks while a shard is full.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New starts a dispatcher with n shard goroutines.
func New(n int, opts ...Option) *Dispatcher {
	if n <= 0 {
		n = DefaultShards
	}
	d := &Dispatcher{
		shards:    make(map[string]*shard, n),
		queueSize: DefaultQueueSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.ring = consistent.New(nil, consistent.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	})
	for i := 0; i < n; i++ {
		s := &shard{name: fmt.Sprintf("shard-%d", i), queue: make(chan job, d.queueSize)}
		d.shards[s.name] = s
		d.ring.Add(s)
		d.wg.Add(1)
		go d.run(s)
	}
	return d
}

func (d *Dispatcher) run(s *shard) {
	defer d.wg.Done()
	for j := range s.queue {
		d.execute(s, j)
	}
}

func (d *Dispatcher) execute(s *shard, j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in dispatch task", "shard", s.name, "key", j.key, "panic", r)
		}
	}()
	j.task(j.ctx)
}

// ShardFor returns the shard name that owns key.
func (d *Dispatcher) ShardFor(key string) string {
	return d.ring.LocateKey([]byte(key)).String()
}

// Dispatch queues task on the shard owning key. The task receives ctx with its
// cancellation detached, so it completes even after the caller returned.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	s := d.shards[d.ShardFor(key)]
	select {
	case s.queue <- job{ctx: context.WithoutCancel(ctx), key: key, task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits until queued ones ran or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, s := range d.shards {
			close(s.queue)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
