package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{name: "remote host", remoteAddr: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "forwarded header ignored", header: "203.0.113.1", remoteAddr: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "ipv6 remote", remoteAddr: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::2"},
		{name: "remote without port", remoteAddr: "203.0.113.1", want: "203.0.113.1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		hops    int
		headers []string
		want    string
	}{
		{name: "no proxies trusted", hops: 0, headers: []string{"203.0.113.1"}, want: "10.0.0.2:1"},
		{name: "one proxy takes last entry", hops: 1, headers: []string{"6.6.6.6, 203.0.113.1"}, want: "203.0.113.1"},
		{name: "two proxies", hops: 2, headers: []string{"6.6.6.6, 203.0.113.1, 10.0.0.9"}, want: "203.0.113.1"},
		{name: "repeated headers", hops: 1, headers: []string{"6.6.6.6", "203.0.113.1"}, want: "203.0.113.1"},
		{name: "too few entries", hops: 2, headers: []string{"203.0.113.1"}, want: "10.0.0.2:1"},
		{name: "garbage entry", hops: 1, headers: []string{"203.0.113.1, nope"}, want: "10.0.0.2:1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := RealIP(tc.hops)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.2:1"
			for _, v := range tc.headers {
				req.Header.Add("X-Forwarded-For", v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("RemoteAddr = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(1)
	limiter.now = func() time.Time { return now }
	h := RealIP(1)(rateLimitHandler(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/create-payment-intent", nil)
		req.RemoteAddr = "10.0.0.2:1"
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [204 429]", codes)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(2)
	limiter.now = func() time.Time { return now }
	h := rateLimitHandler(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/create-payment-intent", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := call("203.0.113.7"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d, want 204", i, rec.Code)
		}
	}
	rec := call("203.0.113.7")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("Retry-After = %q, want 30", rec.Header().Get("Retry-After"))
	}
	if rec := call("198.51.100.1"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client limited: %d", rec.Code)
	}

	now = now.Add(30 * time.Second)
	if rec := call("203.0.113.7"); rec.Code != http.StatusNoContent {
		t.Fatalf("token not refilled after 30s: %d", rec.Code)
	}
}

func TestRateLimitForgetsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(1)
	limiter.now = func() time.Time { return now }
	limiter.allow("203.0.113.7")
	limiter.allow("198.51.100.1")

	now = now.Add(limiterIdleTTL + time.Minute)
	limiter.allow("192.0.2.1")
	if len(limiter.visitors) != 1 {
		t.Fatalf("visitors = %d, want 1 after sweep", len(limiter.visitors))
	}
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimit(0)(next)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}
