package sandbox

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := tokenIssuer{secret: []byte("k"), accessTTL: time.Minute, now: func() time.Time { return now }}

	raw, issued, err := issuer.issue(tokenAccess, "adm_1", "a@example.com", "admin", 2, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.parse(raw, tokenAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "adm_1" || claims.Epoch != 2 || claims.ID != issued.ID {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer := tokenIssuer{secret: []byte("k"), accessTTL: time.Minute, now: func() time.Time { return clock }}
	refresh, _, err := issuer.issue(tokenRefresh, "adm_1", "", "", 0, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name   string
		raw    string
		kind   string
		offset time.Duration
		issuer tokenIssuer
	}{
		{name: "wrong kind", raw: refresh, kind: tokenAccess},
		{name: "expired", raw: refresh, kind: tokenRefresh, offset: 2 * time.Minute},
		{name: "wrong secret", raw: refresh, kind: tokenRefresh, issuer: tokenIssuer{secret: []byte("other"), now: func() time.Time { return now }}},
		{name: "garbage", raw: "not-a-jwt", kind: tokenAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = now.Add(tt.offset)
			p := issuer
			if tt.issuer.secret != nil {
				p = tt.issuer
			}
			if _, err := p.parse(tt.raw, tt.kind); !errors.Is(err, errTokenInvalid) {
				t.Fatalf("expected errTokenInvalid, got %v", err)
			}
		})
	}
}
