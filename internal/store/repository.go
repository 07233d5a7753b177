/**
 * @description
 * This file defines the `Repository` interface for the credit-service's data
 * access layer, along with the sentinel errors the rest of the service matches
 * on with errors.Is. The interface is implemented by PostgresRepository for
 * production and by in-memory fakes in tests.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/mayadupare9-source/UPSC-Bot/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// OutboxEnqueue describes an event row to insert alongside a mutation, in the
// same database transaction. The outbox dispatcher publishes it later;
// publication failures never affect the mutation that enqueued it.
type OutboxEnqueue struct {
	Exchange   string
	RoutingKey string
	Payload    interface{}
}

// Repository defines the storage contract for accounts and the event outbox.
// All balance mutations for a given account id are atomic with respect to each
// other; operations on different ids may proceed concurrently.
type Repository interface {
	// GetOrCreateAccount returns the account for id, creating it with
	// startingCredits and the given referrer when absent. Creation is atomic
	// per id: of N concurrent first contacts exactly one observes created=true
	// and the rest observe the winner's row. The notice, if non-nil, is
	// enqueued only when this call created the account.
	GetOrCreateAccount(ctx context.Context, id string, referrerID *string, startingCredits int64, notice *OutboxEnqueue) (*domain.Account, bool, error)

	// GetAccount returns the account for id or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// ConsumeCredits atomically debits amount from id and, when the account has
	// a referrer, credits the referrer the same amount in the same transaction.
	// Returns ErrAccountNotFound or ErrInsufficientCredits with no mutation.
	// A referrer id that no longer resolves to a row is a tolerated no-op.
	ConsumeCredits(ctx context.Context, id string, amount int64) (*domain.ConsumeResult, error)

	// GrantCredits atomically adds amount (>= 1, validated by the caller) to
	// id's balance, creating the account with credits = amount and no referrer
	// when absent. Grants never trigger referral credit-back.
	GrantCredits(ctx context.Context, id string, amount int64) (*domain.Account, error)

	// Outbox operations used by the dispatcher.
	ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
}
