package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		Secret:   "secret",
		Issuer:   "https://id.storefront.test",
		Audience: "storefront-web",
	}
}

func TestMintAndParseIDToken(t *testing.T) {
	cfg := testIdentityConfig()
	now := time.Now().UTC()

	token, err := MintIDToken(cfg, now, time.Hour, IDTokenPayload{
		Subject: "user-42",
		Email:   "asha@example.com",
		Name:    "Asha Rao",
		Picture: "https://cdn.example.com/asha.png",
	})
	if err != nil {
		t.Fatalf("mint id token: %v", err)
	}

	claims, err := ParseIDToken(cfg, token)
	if err != nil {
		t.Fatalf("parse id token: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %s", claims.Subject)
	}
	if claims.Email != "asha@example.com" || claims.Name != "Asha Rao" {
		t.Fatalf("profile claims not preserved: %+v", claims)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Hour)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.UTC())
	}
}

func TestParseIDTokenInvalidSignature(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIDToken(cfg, time.Now(), time.Hour, IDTokenPayload{Subject: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Secret = "different"
	if _, err := ParseIDToken(other, token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseIDTokenRejectsWrongAudienceAndIssuer(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIDToken(cfg, time.Now(), time.Hour, IDTokenPayload{Subject: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wrongAud := cfg
	wrongAud.Audience = "mobile-app"
	if _, err := ParseIDToken(wrongAud, token); err == nil {
		t.Fatal("expected audience error")
	}

	wrongIss := cfg
	wrongIss.Issuer = "https://evil.test"
	if _, err := ParseIDToken(wrongIss, token); err == nil {
		t.Fatal("expected issuer error")
	}
}

func TestParseIDTokenExpired(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIDToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, IDTokenPayload{Subject: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseIDToken(cfg, token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestMintIDTokenValidation(t *testing.T) {
	if _, err := MintIDToken(config.IdentityConfig{}, time.Now(), time.Hour, IDTokenPayload{Subject: "u"}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := MintIDToken(testIdentityConfig(), time.Now(), time.Hour, IDTokenPayload{}); err == nil {
		t.Fatal("expected missing subject error")
	}
}
