package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const PruneCartsSpec = "@every 10m"

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CartPruner is satisfied by *service.CartService.
type CartPruner interface {
	Prune(idle time.Duration) int
	Len() int
}

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(l *slog.Logger) *Scheduler {
	if l == nil {
		l = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser)),
		log:  l.With("component", "jobs"),
	}
}

// AddCartPruning evicts carts that have not been touched for longer than idle.
func (s *Scheduler) AddCartPruning(spec string, carts CartPruner, idle time.Duration) error {
	if idle <= 0 {
		return fmt.Errorf("cart idle ttl must be positive, got %s", idle)
	}
	_, err := s.cron.AddFunc(spec, func() { PruneCarts(s.log, carts, idle) })
	if err != nil {
		return fmt.Errorf("add cart pruning job: %w", err)
	}
	return nil
}

func PruneCarts(l *slog.Logger, carts CartPruner, idle time.Duration) int {
	n := carts.Prune(idle)
	if n > 0 {
		l.Info("carts_pruned", "count", n, "remaining", carts.Len(), "idle", idle.String())
	}
	return n
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("jobs_stop_timeout", "error", ctx.Err())
	}
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }
