package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestResolveUserID(t *testing.T) {
	v := NewVerifier([]byte("secret"), "exam")
	now := time.Now()

	valid, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	expired, _ := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}})
	noSubject, _ := v.Sign(Claims{})
	otherIssuer, _ := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "someone"}})
	otherKey, _ := NewVerifier([]byte("other"), "exam").Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{name: "valid", token: valid, want: "user-1"},
		{name: "expired", token: expired, wantErr: ErrInvalidToken},
		{name: "no subject", token: noSubject, wantErr: ErrMissingSubject},
		{name: "wrong issuer", token: otherIssuer, wantErr: ErrInvalidToken},
		{name: "wrong key", token: otherKey, wantErr: ErrInvalidToken},
		{name: "alg none", token: unsigned, wantErr: ErrInvalidToken},
		{name: "garbage", token: "not-a-token", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ResolveUserID(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveUserID() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveUserID() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}
