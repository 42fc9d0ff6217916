package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/cart"
)

type countingPruner struct {
	idle  time.Duration
	calls int
	n     int
}

func (p *countingPruner) Prune(idle time.Duration) int {
	p.idle = idle
	p.calls++
	return p.n
}

func (p *countingPruner) Len() int { return 0 }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPruneCarts(t *testing.T) {
	p := &countingPruner{n: 3}
	assert.Equal(t, 3, PruneCarts(quiet(), p, time.Hour))
	assert.Equal(t, time.Hour, p.idle)
	assert.Equal(t, 1, p.calls)
}

func TestPruneCarts_Registry(t *testing.T) {
	r := cart.NewRegistry()
	require.NoError(t, r.Do("a", func(*cart.Engine) error { return nil }))

	assert.Equal(t, 0, PruneCarts(quiet(), r, time.Hour), "fresh cart stays")
	assert.Equal(t, 1, r.Len())
}

func TestScheduler_AddCartPruning(t *testing.T) {
	s := New(quiet())
	require.NoError(t, s.AddCartPruning(PruneCartsSpec, &countingPruner{}, time.Hour))
	assert.Equal(t, 1, s.Len())

	assert.Error(t, s.AddCartPruning("not a spec", &countingPruner{}, time.Hour))
	assert.Error(t, s.AddCartPruning(PruneCartsSpec, &countingPruner{}, 0))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestScheduler_RunsJob(t *testing.T) {
	s := New(quiet())
	p := &countingPruner{}
	done := make(chan struct{}, 1)
	_, err := s.cron.AddFunc("@every 1s", func() {
		PruneCarts(s.log, p, time.Minute)
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
