package domain

import "testing"

func TestResolveReferralToken(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		newAccountID string
		want         string
		wantNone     bool
	}{
		{
			name:         "valid token resolves embedded id",
			token:        "ref_1168032644",
			newAccountID: "555",
			want:         "1168032644",
		},
		{
			name:         "surrounding whitespace is tolerated",
			token:        "  ref_42  ",
			newAccountID: "555",
			want:         "42",
		},
		{
			name:         "self referral is rejected",
			token:        "ref_42",
			newAccountID: "42",
			wantNone:     true,
		},
		{
			name:         "empty token",
			token:        "",
			newAccountID: "42",
			wantNone:     true,
		},
		{
			name:         "missing tag",
			token:        "42",
			newAccountID: "555",
			wantNone:     true,
		},
		{
			name:         "tag with empty id",
			token:        "ref_",
			newAccountID: "555",
			wantNone:     true,
		},
		{
			name:         "tag is case sensitive",
			token:        "REF_42",
			newAccountID: "555",
			wantNone:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveReferralToken(tt.token, tt.newAccountID)
			if tt.wantNone {
				if got != nil {
					t.Fatalf("expected no referrer, got %q", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected referrer %q, got none", tt.want)
			}
			if *got != tt.want {
				t.Fatalf("expected referrer %q, got %q", tt.want, *got)
			}
		})
	}
}

func TestReferralTokenRoundTrip(t *testing.T) {
	token := ReferralToken("987")
	if token != "ref_987" {
		t.Fatalf("expected ref_987, got %q", token)
	}
	resolved := ResolveReferralToken(token, "123")
	if resolved == nil || *resolved != "987" {
		t.Fatalf("expected token to resolve back to 987, got %v", resolved)
	}
}
