package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
)

const checkoutBody = `{"customer_email":"Jane@Example.com","customer_name":"Jane","items":[{"type":"service","id":7,"quantity":2}]}`

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("checkout", time.Minute, 2, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(body) != checkoutBody {
			t.Fatalf("body not restored: %s", string(body))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, intentURL, strings.NewReader(checkoutBody))
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestRateLimitEmailLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("checkout", time.Minute, 0, 2)
	handler := RateLimit(policy, store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		body := strings.Replace(checkoutBody, "Jane@Example.com", " jane@example.COM ", 1)
		if i == 0 {
			body = checkoutBody
		}
		req := httptest.NewRequest(http.MethodPost, intentURL, strings.NewReader(body))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Fatalf("expected Retry-After 60, got %q", got)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}
}

func TestRateLimitIPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("checkout", time.Minute, 1, 0)
	handler := RateLimit(policy, store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, intentURL, strings.NewReader(checkoutBody))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d, 5.6.7.8", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}
	if _, ok := store.counts["fake:checkout:ip:5.6.7.8"]; !ok {
		t.Fatalf("expected counter keyed by the proxy-appended hop, got %v", store.counts)
	}
}

func TestClientIPIgnoresSpoofedForwardedEntries(t *testing.T) {
	cases := map[string]struct {
		forwarded string
		remote    string
		want      string
	}{
		"proxy hop wins":       {forwarded: "1.1.1.1, 9.9.9.9", remote: "10.0.0.2:443", want: "9.9.9.9"},
		"trailing garbage":     {forwarded: "9.9.9.9, not-an-ip", remote: "10.0.0.2:443", want: "9.9.9.9"},
		"no header":            {remote: "10.0.0.2:443", want: "10.0.0.2"},
		"unparseable fallback": {forwarded: "junk", remote: "10.0.0.2:443", want: "10.0.0.2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, intentURL, nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRateLimitDisabledPolicy(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("checkout", 0, 1, 1), newFakeRateStore(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, intentURL, strings.NewReader(checkoutBody)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected disabled policy to pass, got %d", rec.Code)
		}
	}
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "fake:" + scope
}
