package asyncutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)

	var current, max int32
	for i := 0; i < 10; i++ {
		limiter.Go(func() {
			n := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		})
	}
	limiter.Wait()

	require.LessOrEqual(t, int(max), 2)
}

func TestLimiterPanicsOnNonPositiveLimit(t *testing.T) {
	require.Panics(t, func() { NewLimiter(0) })
	require.Panics(t, func() { NewLimiter(-1) })
}
