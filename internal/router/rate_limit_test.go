package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMemoryLimiterDeniesOverLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return base })

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(context.Background(), "ip:1.2.3.4", 60, 3)
		if err != nil {
			t.Fatalf("allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should pass", i+1)
		}
	}

	allowed, retryAfter, err := limiter.Allow(context.Background(), "ip:1.2.3.4", 60, 3)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if allowed {
		t.Fatalf("fourth request should be denied")
	}
	if retryAfter < 1 || retryAfter > 60 {
		t.Fatalf("retry after out of range: %d", retryAfter)
	}
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if allowed, _, _ := limiter.Allow(context.Background(), "k", 30, 2); !allowed {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "k", 30, 2); allowed {
		t.Fatalf("over limit request should be denied")
	}

	now = now.Add(31 * time.Second)
	if allowed, _, _ := limiter.Allow(context.Background(), "k", 30, 2); !allowed {
		t.Fatalf("request after window rollover should pass")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()

	if allowed, _, _ := limiter.Allow(context.Background(), "a", 60, 1); !allowed {
		t.Fatalf("first request on key a should pass")
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "a", 60, 1); allowed {
		t.Fatalf("second request on key a should be denied")
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "b", 60, 1); !allowed {
		t.Fatalf("key b should not be affected by key a")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, int) (bool, int, error) {
	return false, 0, errors.New("limiter backend down")
}

func newRateLimitTestRouter(limiter Limiter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(limiter, rule, KeyByIP), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	limiter := NewMemoryLimiter()
	r := newRateLimitTestRouter(limiter, RateLimitRule{
		Prefix:        "test",
		WindowSeconds: 60,
		MaxRequests:   2,
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: want 200 got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429 got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 response should carry Retry-After header")
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	r := newRateLimitTestRouter(failingLimiter{}, RateLimitRule{
		Prefix:        "test",
		WindowSeconds: 60,
		MaxRequests:   1,
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("limiter failure should not block requests, got %d", w.Code)
		}
	}
}

func TestRateLimitMiddlewareSkipsEmptyRule(t *testing.T) {
	r := newRateLimitTestRouter(NewMemoryLimiter(), RateLimitRule{})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("empty rule should not limit, got %d", w.Code)
		}
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		value interface{}
		want  int64
		ok    bool
	}{
		{int64(7), 7, true},
		{int(3), 3, true},
		{float64(9), 9, true},
		{"10", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := toInt64(tc.value)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("toInt64(%v): want (%d,%v) got (%d,%v)", tc.value, tc.want, tc.ok, got, ok)
		}
	}
}
