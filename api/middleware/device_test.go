package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/storefront/storefronttest"
)

func TestDeviceMintsIDWhenHeaderMissing(t *testing.T) {
	fx := storefronttest.New(t)
	var seen string
	handler := Device(fx.Registry, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = DeviceIDFromContext(r.Context())
		if DeviceFromContext(r.Context()) == nil {
			t.Errorf("expected device in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	echoed := rec.Header().Get(DeviceIDHeader)
	if _, err := uuid.Parse(echoed); err != nil {
		t.Fatalf("expected minted uuid, got %q", echoed)
	}
	if seen != echoed {
		t.Fatalf("context device %q does not match header %q", seen, echoed)
	}
}

func TestDeviceReusesClientID(t *testing.T) {
	fx := storefronttest.New(t)
	fx.SignIn(t, "dev-1", "user-1")

	var userID string
	handler := Device(fx.Registry, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(DeviceIDHeader, "dev-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(DeviceIDHeader) != "dev-1" {
		t.Fatalf("expected header echoed, got %q", rec.Header().Get(DeviceIDHeader))
	}
	if userID != "user-1" {
		t.Fatalf("expected signed-in user in context, got %q", userID)
	}
	if fx.Registry.Len() != 1 {
		t.Fatalf("expected one device, got %d", fx.Registry.Len())
	}
}

func TestDeviceRejectsMalformedID(t *testing.T) {
	fx := storefronttest.New(t)
	called := false
	handler := Device(fx.Registry, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(DeviceIDHeader, "dev 1/../x")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler must not run for a malformed device id")
	}
}

func TestDeviceRegistryClosedIsUnavailable(t *testing.T) {
	fx := storefronttest.New(t)
	fx.Registry.Close()
	handler := Device(fx.Registry, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequestDeviceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/search", nil)
	if got := RequestDeviceID(req); got != "" {
		t.Fatalf("expected empty id without header, got %q", got)
	}
	req.Header.Set(DeviceIDHeader, "  dev_9 ")
	if got := RequestDeviceID(req); got != "dev_9" {
		t.Fatalf("expected trimmed id, got %q", got)
	}
	req.Header.Set(DeviceIDHeader, "bad id")
	if got := RequestDeviceID(req); got != "" {
		t.Fatalf("expected malformed id to be ignored, got %q", got)
	}
}
