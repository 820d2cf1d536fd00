package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunChunking(t *testing.T) {
	items := make([]int, 25)

	var calls [][]int
	var active, maxActive int32

	_, err := Run(context.Background(), items, 10, func(ctx context.Context, chunk []int) (int, error) {
		cur := atomic.AddInt32(&active, 1)
		if cur > atomic.LoadInt32(&maxActive) {
			atomic.StoreInt32(&maxActive, cur)
		}
		calls = append(calls, chunk)
		atomic.AddInt32(&active, -1)
		return len(calls), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	for i, want := range []int{10, 10, 5} {
		if len(calls[i]) != want {
			t.Fatalf("chunk %d size = %d, want %d", i, len(calls[i]), want)
		}
	}
	if maxActive != 1 {
		t.Fatalf("chunks ran concurrently (max active = %d)", maxActive)
	}
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	items := make([]int, 30)
	boom := errors.New("chunk failed")

	calls := 0
	last, err := Run(context.Background(), items, 10, func(ctx context.Context, chunk []int) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "chunk-" + string(rune('0'+calls)), nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (no chunks after the failure)", calls)
	}
	if last != "chunk-1" {
		t.Fatalf("last = %q, want the last known-good result", last)
	}
}

func TestRunDefaultsChunkSize(t *testing.T) {
	items := make([]int, DefaultChunkSize+1)

	calls := 0
	_, err := Run(context.Background(), items, 0, func(ctx context.Context, chunk []int) (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Run(ctx, make([]int, 5), 10, func(ctx context.Context, chunk []int) (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}
