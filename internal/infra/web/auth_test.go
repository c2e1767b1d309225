//go:build !integration

package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
)

func TestAuthManager_MintParse(t *testing.T) {
	a := NewAuthManager("secret", "glory-ledger", time.Hour)

	tok, err := a.Mint(model.Principal{UserID: "u1", IsAdmin: true})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	p, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.UserID != "u1" || !p.IsAdmin {
		t.Errorf("unexpected principal %+v", p)
	}

	if _, err := NewAuthManager("other", "glory-ledger", time.Hour).Parse(tok); err == nil {
		t.Error("expected signature mismatch to fail")
	}
	if _, err := NewAuthManager("secret", "someone-else", time.Hour).Parse(tok); err == nil {
		t.Error("expected issuer mismatch to fail")
	}
	if _, err := a.Mint(model.Principal{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected empty principal to be refused, got %v", err)
	}
}

func TestAuthManager_RejectsExpiredAndNone(t *testing.T) {
	a := NewAuthManager("secret", "", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, _ := expired.SignedString([]byte("secret"))
	if _, err := a.Parse(s); err == nil {
		t.Error("expected expired token to fail")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	s, _ = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Parse(s); err == nil {
		t.Error("expected alg=none token to fail")
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	a := NewAuthManager("secret", "", time.Hour)
	var failed error
	onFail := func(w http.ResponseWriter, r *http.Request, err error) {
		failed = err
		w.WriteHeader(http.StatusUnauthorized)
	}
	var seen model.Principal
	h := a.Authenticate(onFail)(RequireAdmin(onFail)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("missing token", func(t *testing.T) {
		failed = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if !errors.Is(failed, domain.ErrUnauthenticated) {
			t.Errorf("expected unauthenticated, got %v", failed)
		}
	})

	t.Run("user is not admin", func(t *testing.T) {
		failed = nil
		tok, _ := a.Mint(model.Principal{UserID: "u1"})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if !errors.Is(failed, domain.ErrForbidden) {
			t.Errorf("expected forbidden, got %v", failed)
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		failed = nil
		tok, _ := a.Mint(model.Principal{UserID: "a1", IsAdmin: true})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || seen.UserID != "a1" {
			t.Errorf("expected pass-through, got %d %+v", rec.Code, seen)
		}
	})
}
