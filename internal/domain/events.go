/**
 * @description
 * This file defines the message payloads the credit-service publishes to RabbitMQ.
 * The chat gateway consumes these events and turns them into user-facing notices;
 * none of them participate in the balance invariants.
 */

package domain

import "time"

// Every event carries a unique EventID so the gateway can deduplicate
// redeliveries (the outbox dispatcher guarantees at-least-once, not
// exactly-once).

// ReferralPendingEvent is enqueued (via the transactional outbox) when a new
// account is created with a valid referrer. The gateway sends the referrer the
// "referral bonus pending" notice.
type ReferralPendingEvent struct {
	EventID           string    `json:"event_id"`
	ReferrerID        string    `json:"referrer_id"`
	ReferredID        string    `json:"referred_id"`
	ReferredFirstName string    `json:"referred_first_name,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// CreditsGrantedEvent is published best-effort after a successful grant so the
// gateway can notify the credited user ("Payment received").
type CreditsGrantedEvent struct {
	EventID   string    `json:"event_id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// ReferralCreditedEvent is published best-effort after a consumption that
// applied a referral credit-back.
type ReferralCreditedEvent struct {
	EventID    string    `json:"event_id"`
	ReferrerID string    `json:"referrer_id"`
	ReferredID string    `json:"referred_id"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
