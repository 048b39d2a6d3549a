package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func executors() map[string]Executor {
	return map[string]Executor{
		"pool":   NewPool(PoolConfig{WorkerCount: 4, Logger: zap.NewNop()}),
		"inline": NewInline(zap.NewNop()),
	}
}

func TestExecute_RunsEveryUnit(t *testing.T) {
	for name, exec := range executors() {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			seen := make(map[string]bool)
			units := make([]Unit, 0, 25)
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("member-%d", i)
				units = append(units, Unit{Name: key, Run: func(ctx context.Context) error {
					mu.Lock()
					seen[key] = true
					mu.Unlock()
					return nil
				}})
			}

			out := exec.Execute(context.Background(), "members", units)
			if out != (Outcome{Submitted: 25, Succeeded: 25}) {
				t.Errorf("Outcome = %+v", out)
			}
			if len(seen) != 25 {
				t.Errorf("ran %d units, want 25", len(seen))
			}
		})
	}
}

func TestExecute_IsolatesFailures(t *testing.T) {
	for name, exec := range executors() {
		t.Run(name, func(t *testing.T) {
			var ran atomic.Int32
			units := []Unit{
				{Name: "ok-1", Run: func(ctx context.Context) error { ran.Add(1); return nil }},
				{Name: "fails", Run: func(ctx context.Context) error { ran.Add(1); return errors.New("store unavailable") }},
				{Name: "panics", Run: func(ctx context.Context) error { ran.Add(1); panic("nil map") }},
				{Name: "ok-2", Run: func(ctx context.Context) error { ran.Add(1); return nil }},
			}

			out := exec.Execute(context.Background(), "members", units)
			if out.Submitted != 4 || out.Succeeded != 2 || out.Failed != 2 {
				t.Errorf("Outcome = %+v, want 2 succeeded and 2 failed", out)
			}
			if ran.Load() != 4 {
				t.Errorf("ran = %d, want all 4 units", ran.Load())
			}
		})
	}
}

func TestExecute_Empty(t *testing.T) {
	for name, exec := range executors() {
		t.Run(name, func(t *testing.T) {
			if out := exec.Execute(context.Background(), "unregistered", nil); out != (Outcome{}) {
				t.Errorf("Outcome = %+v, want zero", out)
			}
		})
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 3, Logger: zap.NewNop()})

	var active, peak atomic.Int32
	units := make([]Unit, 20)
	for i := range units {
		units[i] = Unit{Name: fmt.Sprint(i), Run: func(ctx context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return nil
		}}
	}

	pool.Execute(context.Background(), "members", units)
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestInline_PreservesOrder(t *testing.T) {
	exec := NewInline(zap.NewNop())

	var order []int
	units := make([]Unit, 5)
	for i := range units {
		units[i] = Unit{Name: fmt.Sprint(i), Run: func(ctx context.Context) error {
			order = append(order, i)
			return nil
		}}
	}
	exec.Execute(context.Background(), "members", units)

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want sequential", order)
		}
	}
}

func TestNewExecutor(t *testing.T) {
	if _, ok := NewExecutor("inline", 8, zap.NewNop()).(*Inline); !ok {
		t.Error("inline mode should return *Inline")
	}
	if p, ok := NewExecutor("pool", 8, zap.NewNop()).(*Pool); !ok || p.config.WorkerCount != 8 {
		t.Error("pool mode should return *Pool with 8 workers")
	}
}
