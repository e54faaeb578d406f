package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	limiter := BodyLimit{Max: 16}
	var captured string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("unexpected read error: %v", err)
		}
		captured = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"qty":1}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if captured != `{"qty":1}` {
		t.Fatalf("expected body to pass through, got %q", captured)
	}
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	limiter := BodyLimit{Max: 4}
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("oversized payload"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "PAYLOAD_TOO_LARGE") {
		t.Fatalf("expected JSON error code in body, got %q", rr.Body.String())
	}
}

func TestBodyLimitRejectsDeclaredContentLength(t *testing.T) {
	limiter := BodyLimit{Max: 4}
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("tiny"))
	req.ContentLength = 4096
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for declared oversized body, got %d", rr.Code)
	}
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	middleware := Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 31536000, HSTSIncludeSubdomains: true}
	handler := middleware.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	headers := rr.Result().Header
	if got := headers.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := headers.Get("Strict-Transport-Security"); got == "" {
		t.Fatal("expected hsts header to be set")
	}
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	middleware := Headers{Enable: false, EnableHSTS: true}
	handler := middleware.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	if rr.Header().Get("X-Content-Type-Options") != "" {
		t.Fatal("expected no security headers when disabled")
	}
}
