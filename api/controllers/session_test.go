package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/storefront/storefronttest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestSessionCurrentAnonymous(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.Device(t, "dev-1")

	resp := httptest.NewRecorder()
	SessionCurrent(nil).ServeHTTP(resp, deviceRequest(http.MethodGet, "/api/v1/session", nil, dev))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	got := decodeData[sessionResponse](t, resp)
	if got.SignedIn || got.User != nil || got.Loading {
		t.Fatalf("expected settled anonymous session, got %+v", got)
	}
}

func TestSessionSignInSwitchesIdentity(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.Device(t, "dev-1")

	body := jsonBody(t, map[string]string{"idToken": fx.Token(t, "user-1")})
	resp := httptest.NewRecorder()
	SessionSignIn(nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/session/sign-in", body, dev))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	got := decodeData[identity.SignInResult](t, resp)
	if got.Status != identity.SignedIn || got.User == nil || got.User.ID != "user-1" {
		t.Fatalf("unexpected sign-in result %+v", got)
	}
	if user := dev.Identity.Current(); user == nil || user.ID != "user-1" {
		t.Fatalf("expected device identity to switch, got %+v", user)
	}
	if snap := dev.Cart.Snapshot(); snap.UserID != "user-1" {
		t.Fatalf("expected cart to follow identity, got %+v", snap)
	}
}

func TestSessionSignInCancelledIsNotAnError(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.Device(t, "dev-1")

	body := jsonBody(t, map[string]string{"errorCode": "auth/popup-closed-by-user"})
	resp := httptest.NewRecorder()
	SessionSignIn(nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/session/sign-in", body, dev))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := decodeData[identity.SignInResult](t, resp); got.Status != identity.SignInCancelled {
		t.Fatalf("expected cancelled status, got %+v", got)
	}
	if dev.Identity.Current() != nil {
		t.Fatalf("identity must stay anonymous after a cancelled sign-in")
	}
}

func TestSessionSignInErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    map[string]string
		status  int
		code    pkgerrors.Code
		message string
	}{
		{
			name:    "invalid token",
			body:    map[string]string{"idToken": "not-a-jwt"},
			status:  http.StatusUnauthorized,
			code:    pkgerrors.CodeUnauthorized,
			message: signInFailedMessage,
		},
		{
			name:   "provider not configured",
			body:   map[string]string{"errorCode": "auth/configuration-not-found"},
			status: http.StatusInternalServerError,
			code:   pkgerrors.CodeConfiguration,
		},
		{
			name:   "empty payload",
			body:   map[string]string{},
			status: http.StatusBadRequest,
			code:   pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := storefronttest.New(t)
			dev := fx.Device(t, "dev-1")

			resp := httptest.NewRecorder()
			SessionSignIn(nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/session/sign-in", jsonBody(t, tc.body), dev))

			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
			got := decodeError(t, resp)
			if got.Error.Code != string(tc.code) {
				t.Fatalf("expected code %s got %s", tc.code, got.Error.Code)
			}
			if tc.message != "" && got.Error.Message != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, got.Error.Message)
			}
		})
	}
}

func TestSessionSignOut(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.SignIn(t, "dev-1", "user-1")

	resp := httptest.NewRecorder()
	SessionSignOut(nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/session/sign-out", nil, dev))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if dev.Identity.Current() != nil {
		t.Fatalf("expected anonymous identity after sign out")
	}
}

func TestSessionRequiresDeviceContext(t *testing.T) {
	resp := httptest.NewRecorder()
	SessionCurrent(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
