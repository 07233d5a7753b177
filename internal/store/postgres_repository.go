/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It owns the only two balance-mutating code paths (ConsumeCredits, GrantCredits)
 * and enforces their atomicity with row locks and single-statement upserts.
 *
 * Schema:
 *   accounts(id TEXT PRIMARY KEY, credits BIGINT NOT NULL,
 *            referrer_id TEXT NULL, created_at, updated_at)
 *   event_outbox(id BIGSERIAL PRIMARY KEY, exchange, routing_key, payload JSONB,
 *                status, attempts, next_attempt_at, processing_started_at,
 *                published_at, last_error, created_at)
 *
 * @dependencies
 * - context, sort: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mayadupare9-source/UPSC-Bot/internal/domain"
)

const accountColumns = "id, credits, referrer_id, created_at, updated_at"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.ID, &account.Credits, &account.ReferrerID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccount retrieves an account by its gateway user id.
func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetOrCreateAccount inserts the account if absent and returns the row that won.
// Two concurrent first contacts for the same id serialize on the primary key:
// the loser's INSERT ... ON CONFLICT DO NOTHING returns no row and the follow-up
// SELECT observes the winner's state.
func (r *PostgresRepository) GetOrCreateAccount(ctx context.Context, id string, referrerID *string, startingCredits int64, notice *OutboxEnqueue) (*domain.Account, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO accounts (id, credits, referrer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns
	account, err := scanAccount(tx.QueryRow(ctx, insert, id, startingCredits, referrerID))
	created := true
	if err == ErrAccountNotFound {
		// Lost the race or the account already existed; read the winner's row.
		created = false
		account, err = scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	}
	if err != nil {
		return nil, false, err
	}

	if created && notice != nil {
		if err := enqueueEventTx(ctx, tx, notice.Exchange, notice.RoutingKey, notice.Payload); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return account, created, nil
}

// ConsumeCredits debits the consumer and credits its referrer as one transaction.
// Both rows are locked with FOR UPDATE in ascending id order so two accounts that
// refer each other cannot deadlock when they consume concurrently.
func (r *PostgresRepository) ConsumeCredits(ctx context.Context, id string, amount int64) (*domain.ConsumeResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// referrer_id is immutable after creation, so it can be read without a lock
	// to work out the lock set.
	var referrerID *string
	err = tx.QueryRow(ctx, `SELECT referrer_id FROM accounts WHERE id = $1`, id).Scan(&referrerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	for _, lockID := range consumeLockOrder(id, referrerID) {
		// A missing referrer row is fine here; the credit-back degrades to a no-op.
		if _, err := tx.Exec(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, lockID); err != nil {
			return nil, err
		}
	}

	account, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if account.Credits < amount {
		return nil, ErrInsufficientCredits
	}

	debited, err := scanAccount(tx.QueryRow(ctx, `
		UPDATE accounts
		SET credits = credits - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+accountColumns, amount, id))
	if err != nil {
		return nil, err
	}

	credited := false
	if referrerID != nil && *referrerID != id {
		tag, err := tx.Exec(ctx, `
			UPDATE accounts
			SET credits = credits + $1, updated_at = NOW()
			WHERE id = $2
		`, amount, *referrerID)
		if err != nil {
			return nil, err
		}
		credited = tag.RowsAffected() > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.ConsumeResult{
		Account:          debited,
		ReferrerID:       referrerID,
		ReferrerCredited: credited,
	}, nil
}

// GrantCredits adds amount to the balance, bootstrapping the account when it has
// never interacted with the gateway. The single-statement upsert keeps the
// read-modify-write atomic without an explicit transaction.
func (r *PostgresRepository) GrantCredits(ctx context.Context, id string, amount int64) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (id, credits, referrer_id)
		VALUES ($1, $2, NULL)
		ON CONFLICT (id) DO UPDATE
		SET credits = accounts.credits + EXCLUDED.credits, updated_at = NOW()
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, id, amount))
}

// consumeLockOrder returns the distinct account ids a consumption must lock,
// sorted ascending. Locking in a global order is what rules out deadlock between
// mutually-referring accounts.
func consumeLockOrder(id string, referrerID *string) []string {
	ids := []string{id}
	if referrerID != nil && *referrerID != id {
		ids = append(ids, *referrerID)
	}
	sort.Strings(ids)
	return ids
}
