package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Two phases of a pass may share one pool; concurrent Execute calls must
// keep their outcomes apart.
func TestPool_RaceCondition(t *testing.T) {
	p := NewPool(PoolConfig{WorkerCount: 4, QueueSize: 8, Logger: zap.NewNop()})

	var total atomic.Int64
	wg := sync.WaitGroup{}
	callers := 10
	unitsPerCaller := 100
	outcomes := make([]Outcome, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			units := make([]Unit, 0, unitsPerCaller)
			for j := 0; j < unitsPerCaller; j++ {
				fail := j%10 == 0
				units = append(units, Unit{
					Name: fmt.Sprintf("caller-%d-unit-%d", i, j),
					Run: func(ctx context.Context) error {
						total.Add(1)
						if j%25 == 0 {
							time.Sleep(time.Millisecond)
						}
						if fail {
							return fmt.Errorf("unit %d failed", j)
						}
						return nil
					},
				})
			}
			outcomes[i] = p.Execute(context.Background(), fmt.Sprintf("path-%d", i), units)
		}()
	}
	wg.Wait()

	if got := total.Load(); got != int64(callers*unitsPerCaller) {
		t.Errorf("ran %d units, want %d", got, callers*unitsPerCaller)
	}
	for i, out := range outcomes {
		want := Outcome{Submitted: unitsPerCaller, Succeeded: 90, Failed: 10}
		if out != want {
			t.Errorf("caller %d outcome = %+v, want %+v", i, out, want)
		}
	}
}
