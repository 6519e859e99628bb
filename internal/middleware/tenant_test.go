package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTenantContextCarriesHeaderValue(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantHeaderFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
	req.Header.Set(TenantHeader, "appABCDEFGH12345")
	rec := httptest.NewRecorder()

	TenantContext(next).ServeHTTP(rec, req)

	if got != "appABCDEFGH12345" {
		t.Fatalf("expected header value to be carried into context, got %q", got)
	}
}

func TestTenantContextDefaultsToEmptyString(t *testing.T) {
	var got string
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got = TenantHeaderFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	TenantContext(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected next handler to be invoked")
	}
	if got != "" {
		t.Fatalf("expected empty tenant header, got %q", got)
	}
}

func TestTenantHeaderFromContextWithoutMiddlewareReturnsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if got := TenantHeaderFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty string when middleware never ran, got %q", got)
	}
}
