package worker

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func benchUnits(n int) []Unit {
	units := make([]Unit, n)
	for i := range units {
		units[i] = Unit{Name: fmt.Sprintf("member-%d", i), Run: func(ctx context.Context) error { return nil }}
	}
	return units
}

func BenchmarkPoolExecute(b *testing.B) {
	p := NewPool(PoolConfig{WorkerCount: 32, Logger: zap.NewNop()})
	units := benchUnits(1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Execute(context.Background(), "bench", units)
	}
}

func BenchmarkInlineExecute(b *testing.B) {
	e := NewInline(zap.NewNop())
	units := benchUnits(1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Execute(context.Background(), "bench", units)
	}
}
