package domain

import "strings"

// referralTokenPrefix tags the deep-link payload the gateway forwards from
// /start, e.g. "ref_1168032644".
const referralTokenPrefix = "ref_"

// ResolveReferralToken extracts the referring account id from a referral token.
// Resolution is purely syntactic: the referenced account does not need to exist.
// Empty tokens, tokens without the ref_ tag, tokens with an empty embedded id,
// and self-referrals all resolve to nil. Invalid input degrades silently to "no
// referrer" because referral is an optional bonus path, never a required one.
func ResolveReferralToken(token, newAccountID string) *string {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, referralTokenPrefix) {
		return nil
	}

	referrerID := strings.TrimSpace(strings.TrimPrefix(token, referralTokenPrefix))
	if referrerID == "" || referrerID == newAccountID {
		return nil
	}
	return &referrerID
}

// ReferralToken builds the token an account shares to refer others.
func ReferralToken(accountID string) string {
	return referralTokenPrefix + accountID
}
