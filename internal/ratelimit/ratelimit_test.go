package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/httpmw"
)

func newTestLimiter(t *testing.T, opts ...Option) *IPLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, append([]Option{WithRate(10, 5), WithTTL(time.Hour)}, opts...)...)
}

func TestAllow_BurstThenDeny(t *testing.T) {
	l := newTestLimiter(t, WithRate(0.001, 5))
	for i := 0; i < 5; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d should fit the burst", i+1)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatal("request 6 should be denied")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("another IP has its own bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 1))
	if !l.allow("ip") || l.allow("ip") {
		t.Fatal("burst of 1 should allow then deny")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.allow("ip") {
		t.Fatal("bucket should refill")
	}
}

func TestCallbacks(t *testing.T) {
	var first, denied []string
	l := newTestLimiter(t,
		WithRate(0.001, 1),
		WithOnFirstDenied(func(ip string) { first = append(first, ip) }),
		WithOnDenied(func(ip string) { denied = append(denied, ip) }),
	)
	for i := 0; i < 4; i++ {
		l.allow("a")
	}
	l.allow("b")
	l.allow("b")

	if fmt.Sprint(first) != "[a b]" {
		t.Fatalf("first denied = %v, want once per IP", first)
	}
	if len(denied) != 4 {
		t.Fatalf("denied = %v, want every denial", denied)
	}
}

func TestNilCallbacks(t *testing.T) {
	l := newTestLimiter(t, WithRate(0.001, 1), WithMaxVisitors(1))
	l.allow("a")
	l.allow("a")
	l.allow("b")
}

func TestEvict(t *testing.T) {
	var first int
	l := newTestLimiter(t, WithRate(0.001, 1), WithTTL(time.Minute), WithOnFirstDenied(func(string) { first++ }))
	l.allow("stale")
	l.allow("stale")
	l.allow("fresh")

	l.mu.Lock()
	l.visitors["stale"].lastSeen = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	l.evict(time.Now())
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}

	// a returning IP starts fresh and is logged again
	if !l.allow("stale") {
		t.Fatal("evicted IP should get a new bucket")
	}
	l.allow("stale")
	if first != 2 {
		t.Fatalf("first-denied calls = %d, want 2", first)
	}
}

func TestCleanupLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, WithTTL(20*time.Millisecond))
	l.allow("ip")

	deadline := time.Now().Add(2 * time.Second)
	for l.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("cleanup loop never evicted the idle IP")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
}

func TestMaxVisitors(t *testing.T) {
	var capacity int
	l := newTestLimiter(t, WithMaxVisitors(2), WithOnCapacity(func() { capacity++ }))

	if !l.allow("a") || !l.allow("b") {
		t.Fatal("first two IPs fit")
	}
	if l.allow("c") || l.allow("d") {
		t.Fatal("new IPs are refused at capacity")
	}
	if !l.allow("a") {
		t.Fatal("known IPs are still served at capacity")
	}
	if capacity != 1 {
		t.Fatalf("capacity callback = %d, want 1", capacity)
	}

	l.mu.Lock()
	l.visitors["b"].lastSeen = time.Now().Add(-2 * time.Hour)
	l.mu.Unlock()
	l.evict(time.Now())

	if !l.allow("c") {
		t.Fatal("eviction should free a slot")
	}
	l.allow("d")
	if capacity != 2 {
		t.Fatalf("capacity callback = %d, want 2 after refilling", capacity)
	}
}

func TestMaxVisitors_ZeroUnbounded(t *testing.T) {
	l := newTestLimiter(t, WithMaxVisitors(0))
	for i := 0; i < 500; i++ {
		if !l.allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256)) {
			t.Fatalf("ip %d refused", i)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		rps  float64
		want string
	}{
		{50, "1"}, {1, "1"}, {0.5, "2"}, {0.1, "10"}, {0, "1"},
	}
	for _, tt := range tests {
		l := newTestLimiter(t, WithRate(tt.rps, 1))
		if got := l.retryAfter(); got != tt.want {
			t.Errorf("rps %v: Retry-After = %q, want %q", tt.rps, got, tt.want)
		}
	}
}

func serveFrom(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ui/", http.NoBody)
	req = req.WithContext(httpmw.WithClientIP(req.Context(), ip))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	l := newTestLimiter(t, WithRate(0.001, 2))
	var reached int
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached++ }))

	for i := 0; i < 2; i++ {
		if rec := serveFrom(h, "198.51.100.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := serveFrom(h, "198.51.100.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
	if rec.Body.String() != `{"error":"too many requests"}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if reached != 2 {
		t.Fatalf("handler reached %d times, want 2", reached)
	}
	if rec := serveFrom(h, "198.51.100.2"); rec.Code != http.StatusOK {
		t.Fatal("other clients are unaffected")
	}
}

func TestConcurrent(t *testing.T) {
	var denied atomic.Int64
	l := newTestLimiter(t, WithRate(0.001, 10), WithOnDenied(func(string) { denied.Add(1) }))

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 10 || denied.Load() != 90 {
		t.Fatalf("allowed = %d denied = %d", allowed.Load(), denied.Load())
	}
}
