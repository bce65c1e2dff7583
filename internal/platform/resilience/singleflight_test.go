package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err, _ := g.Do("alias-key", func() (any, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_PropagatesError(t *testing.T) {
	var g SingleFlight
	wantErr := errors.New("loader broke")

	_, err, shared := g.Do("key", func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if shared {
		t.Fatalf("single call must not be shared")
	}

	// The key is released after the call, a retry runs the function again.
	v, err, _ := g.Do("key", func() (any, error) {
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if v != "recovered" {
		t.Fatalf("unexpected retry value: %v", v)
	}
}
