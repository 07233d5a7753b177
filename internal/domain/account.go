/**
 * @description
 * This file defines the core domain models for the credit-service.
 * These structs represent the ledger entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Account IDs are opaque strings supplied by the chat gateway (the front-end's
 *   user identifier); the service never generates or interprets them.
 * - Credit balances are `int64` whole units. There are no fractional credits.
 */

package domain

import "time"

// Account is the central ledger record: a credit balance keyed by the gateway's
// user identifier, plus the optional account that referred it. This struct maps
// directly to the `accounts` table in the database.
type Account struct {
	ID         string    `json:"id"`
	Credits    int64     `json:"credits"`
	ReferrerID *string   `json:"referrer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConsumeResult captures the outcome of a successful credit consumption,
// including whether a referral credit-back was applied in the same transaction.
type ConsumeResult struct {
	Account          *Account `json:"account"`
	ReferrerID       *string  `json:"referrer_id,omitempty"`
	ReferrerCredited bool     `json:"referrer_credited"`
}

// SyncAccountRequest is the DTO the gateway sends on first contact (/start).
// FirstName is used only for display in the referral notice; it is not persisted.
type SyncAccountRequest struct {
	AccountID     string `json:"account_id"`
	FirstName     string `json:"first_name"`
	ReferralToken string `json:"referral_token"`
}

// ConsumeCreditsRequest is the DTO for a unit-priced consumption of the gated service.
type ConsumeCreditsRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

// GrantCreditsRequest is the DTO for an unconditional balance increase.
type GrantCreditsRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

// AdminGrantRequest is the DTO for the admin top-up path. CallerID is the
// identity the gateway authenticated for the /add command.
type AdminGrantRequest struct {
	CallerID string `json:"caller_id"`
	TargetID string `json:"target_id"`
	Amount   int64  `json:"amount"`
}

// EvaluateAnswerRequest carries a submitted answer photo for paid evaluation.
type EvaluateAnswerRequest struct {
	AccountID   string `json:"account_id"`
	ImageBase64 string `json:"image_base64"`
}

// EvaluationResult is returned after a successful paid evaluation.
type EvaluationResult struct {
	Feedback         string `json:"feedback"`
	CreditsConsumed  int64  `json:"credits_consumed"`
	RemainingCredits int64  `json:"remaining_credits"`
}

// ExplainTopicRequest carries a free-tier explanation request.
type ExplainTopicRequest struct {
	Topic string `json:"topic"`
}
