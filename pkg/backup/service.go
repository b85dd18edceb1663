package backup

import (
	"context"
	"time"

	"photoback/pkg/logger"
)

// Service exposes the crawl as a single-flight, observable operation.
// Each Run call is one consumer: it waits for the lease, starts the
// crawl loop, and relays progress lines. The consumer's polling is
// what keeps the lease alive; when the consumer goes away the loop
// winds down on its own at the next page boundary.
type Service struct {
	engine       *Engine
	lease        *Lease
	bus          *Bus
	pollInterval time.Duration
	waitInterval time.Duration
	logger       logger.Logger
}

// NewService creates a crawl service. pollInterval is how often the
// consumer drains progress and extends the lease; waitInterval paces
// the heartbeat lines shown while another consumer holds the lease.
func NewService(engine *Engine, lease *Lease, bus *Bus, pollInterval, waitInterval time.Duration, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Service{
		engine:       engine,
		lease:        lease,
		bus:          bus,
		pollInterval: pollInterval,
		waitInterval: waitInterval,
		logger:       log,
	}
}

// Run starts or joins a backup run and returns the stream of progress
// lines. The channel closes when the run ends or ctx is canceled;
// canceling ctx stops the lease extensions, which ends the background
// loop at its next page boundary.
func (s *Service) Run(ctx context.Context) <-chan string {
	out := make(chan string)
	go s.serve(ctx, out)
	return out
}

func (s *Service) serve(ctx context.Context, out chan<- string) {
	defer close(out)

	gen, ok := s.lease.TryAcquire()
	for !ok {
		if !s.emit(ctx, out, "waiting: another backup is already running") {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.waitInterval):
		}
		gen, ok = s.lease.TryAcquire()
	}

	if !s.emit(ctx, out, "backup started") {
		s.lease.Release(gen)
		return
	}

	// The loop deliberately gets a background context: the consumer
	// vanishing must not cut a transfer mid-stream. Lease expiry stops
	// the loop at the next page boundary instead.
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.engine.Crawl(context.Background(), gen)
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("consumer disconnected, letting the lease lapse")
			return
		case <-done:
			for _, line := range s.bus.Drain() {
				if !s.emit(ctx, out, line) {
					return
				}
			}
			s.emit(ctx, out, "backup stopped")
			return
		case <-ticker.C:
			s.lease.Extend(gen)
			for _, line := range s.bus.Drain() {
				if !s.emit(ctx, out, line) {
					return
				}
			}
		}
	}
}

// emit sends one line unless the consumer is gone
func (s *Service) emit(ctx context.Context, out chan<- string, line string) bool {
	select {
	case out <- line:
		return true
	case <-ctx.Done():
		return false
	}
}
