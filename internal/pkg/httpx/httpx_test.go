package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	cases := map[error]bool{
		nil:                                  false,
		context.Canceled:                     false,
		context.DeadlineExceeded:             true,
		statusErr(429):                       true,
		statusErr(503):                       true,
		statusErr(400):                       false,
		fmt.Errorf("wrap: %w", statusErr(502)): true,
	}
	for err, want := range cases {
		if got := IsRetryableError(err); got != want {
			t.Fatalf("IsRetryableError(%v) = %v, want %v", err, got, want)
		}
	}
}

func TestRetryAfterDurationCapsHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	if got := RetryAfterDuration(resp, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 0); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestJitterSleepStaysWithinBounds(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := JitterSleep(time.Second)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jitter %s out of bounds", d)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatalf("expected zero for zero base")
	}
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected context error")
	}
}
