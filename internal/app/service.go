/**
 * @description
 * This file contains the core business logic for the credit-service. The `Service`
 * struct orchestrates the credit ledger operations, coordinating between the
 * database repository, the completion API client, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: account sync on first contact, credit
 *   consumption with referral credit-back, grants, and admin top-ups.
 * - Debits only after the paid evaluation work has succeeded, so a failed
 *   external call never charges the user.
 * - Publishes notices to RabbitMQ for the chat gateway; all publishes are
 *   best-effort and never fail the primary operation.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For notice publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mayadupare9-source/UPSC-Bot/internal/domain"
	"github.com/mayadupare9-source/UPSC-Bot/internal/store"
	"github.com/mayadupare9-source/UPSC-Bot/pkg/rabbitmq"
)

const (
	// EventsExchange is the durable topic exchange all gateway notices go through.
	EventsExchange = "mentor.events"

	RoutingKeyReferralPending  = "referral.pending"
	RoutingKeyCreditsGranted   = "credits.granted"
	RoutingKeyReferralCredited = "credits.referral_credited"
)

var (
	ErrInvalidAccountID     = errors.New("account id must not be empty")
	ErrInvalidGrantAmount   = errors.New("grant amount must be a positive integer")
	ErrInvalidConsumeAmount = errors.New("consume amount must be a positive integer")
	ErrInvalidTopic         = errors.New("topic must not be empty")
	ErrInvalidSubmission    = errors.New("submission image must not be empty")
	ErrUnauthorizedAdmin    = errors.New("caller is not the configured administrator")
	ErrRateLimited          = errors.New("evaluation rate limit exceeded")
)

// AnswerEvaluator is the slice of the completion client the service depends on.
type AnswerEvaluator interface {
	ScoreAnswer(ctx context.Context, imageBase64 string) (string, error)
	ExplainTopic(ctx context.Context, topic string) (string, error)
}

// EvaluationRateLimiter limits how often one account may request evaluations.
type EvaluationRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the credit ledger.
type Service struct {
	repo            store.Repository
	evaluator       AnswerEvaluator
	eventProducer   rabbitmq.Publisher
	adminUserID     string
	startingCredits int64
	evaluationCost  int64

	rateLimiter        EvaluationRateLimiter
	rateLimitPerMinute int
}

// NewService creates a new credit service instance.
func NewService(repo store.Repository, eval AnswerEvaluator, producer rabbitmq.Publisher, adminUserID string, startingCredits, evaluationCost int64) *Service {
	return &Service{
		repo:            repo,
		evaluator:       eval,
		eventProducer:   producer,
		adminUserID:     strings.TrimSpace(adminUserID),
		startingCredits: startingCredits,
		evaluationCost:  evaluationCost,
	}
}

// SetEvaluationRateLimiter wires an optional distributed rate limiter for the
// paid evaluation path. A nil limiter disables rate limiting.
func (s *Service) SetEvaluationRateLimiter(limiter EvaluationRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.rateLimitPerMinute = perMinute
}

// SyncAccount fetches or creates the account for the gateway user id. On
// creation the referral token (if any) is resolved to a referrer and a
// referral-pending notice is enqueued transactionally with the new row.
// firstName is display-only and never persisted.
func (s *Service) SyncAccount(ctx context.Context, accountID, firstName, referralToken string) (*domain.Account, bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, false, ErrInvalidAccountID
	}

	referrerID := domain.ResolveReferralToken(referralToken, accountID)

	var notice *store.OutboxEnqueue
	if referrerID != nil {
		notice = &store.OutboxEnqueue{
			Exchange:   EventsExchange,
			RoutingKey: RoutingKeyReferralPending,
			Payload: domain.ReferralPendingEvent{
				EventID:           uuid.NewString(),
				ReferrerID:        *referrerID,
				ReferredID:        accountID,
				ReferredFirstName: firstName,
				Timestamp:         time.Now().UTC(),
			},
		}
	}

	account, created, err := s.repo.GetOrCreateAccount(ctx, accountID, referrerID, s.startingCredits, notice)
	if err != nil {
		return nil, false, fmt.Errorf("failed to sync account: %w", err)
	}
	if created {
		log.Printf("level=info component=service op=sync_account outcome=created account_id=%s referred=%t", accountID, referrerID != nil)
	}
	return account, created, nil
}

// GetAccount returns the account for id or store.ErrAccountNotFound.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	return s.repo.GetAccount(ctx, accountID)
}

// Consume debits amount credits from the account and, when the account was
// referred, credits the referrer the same amount in the same transaction.
// The referral credit-back applies to every successful consumption, not just
// the first; it is never propagated past one level.
func (s *Service) Consume(ctx context.Context, accountID string, amount int64) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if amount < 1 {
		return nil, ErrInvalidConsumeAmount
	}

	result, err := s.repo.ConsumeCredits(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	if result.ReferrerCredited && result.ReferrerID != nil {
		s.publish(ctx, RoutingKeyReferralCredited, domain.ReferralCreditedEvent{
			EventID:    uuid.NewString(),
			ReferrerID: *result.ReferrerID,
			ReferredID: accountID,
			Amount:     amount,
			Timestamp:  time.Now().UTC(),
		})
	}
	return result.Account, nil
}

// Grant adds amount credits unconditionally, creating the account (with no
// referrer) when it does not exist. Grants are always referral-neutral: no
// credit-back fires on any grant path.
func (s *Service) Grant(ctx context.Context, accountID string, amount int64) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if amount < 1 {
		return nil, ErrInvalidGrantAmount
	}

	account, err := s.repo.GrantCredits(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, RoutingKeyCreditsGranted, domain.CreditsGrantedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Balance:   account.Credits,
		Timestamp: time.Now().UTC(),
	})
	return account, nil
}

// AdminGrant delegates to Grant after verifying the caller is the configured
// administrator. The unauthorized path performs no mutation, even when the
// target account does not exist.
func (s *Service) AdminGrant(ctx context.Context, callerID, targetID string, amount int64) (*domain.Account, error) {
	if s.adminUserID == "" || strings.TrimSpace(callerID) != s.adminUserID {
		log.Printf("level=warn component=service op=admin_grant outcome=unauthorized caller_id=%s target_id=%s", callerID, targetID)
		return nil, ErrUnauthorizedAdmin
	}
	return s.Grant(ctx, targetID, amount)
}

// EvaluateAnswer runs the paid evaluation workflow: rate limit, balance
// pre-check, external scoring call, then a single consumption. The debit (and
// its referral credit-back) commits only after the evaluator succeeded.
func (s *Service) EvaluateAnswer(ctx context.Context, accountID, imageBase64 string) (*domain.EvaluationResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if strings.TrimSpace(imageBase64) == "" {
		return nil, ErrInvalidSubmission
	}

	if s.rateLimiter != nil && s.rateLimitPerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "evaluation", accountID, s.rateLimitPerMinute, time.Minute)
		if err != nil {
			// The limiter is protective, not load-bearing; degrade open.
			log.Printf("level=warn component=service op=evaluate_answer msg=\"rate limiter unavailable; continuing\" account_id=%s err=%v", accountID, err)
		} else if count > s.rateLimitPerMinute {
			log.Printf("level=warn component=service op=evaluate_answer outcome=rate_limited account_id=%s retry_after=%d", accountID, retryAfter)
			return nil, ErrRateLimited
		}
	}

	// Pre-check so a user with an empty balance never triggers a paid
	// external call. The authoritative check is the consumption below.
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Credits < s.evaluationCost {
		return nil, store.ErrInsufficientCredits
	}

	feedback, err := s.evaluator.ScoreAnswer(ctx, imageBase64)
	if err != nil {
		// No debit on a failed external call.
		return nil, fmt.Errorf("answer evaluation failed: %w", err)
	}

	updated, err := s.Consume(ctx, accountID, s.evaluationCost)
	if err != nil {
		// A concurrent consumer may have drained the balance between the
		// pre-check and the debit. The work is done but unbilled; surface the
		// ledger error and leave retry policy to the gateway.
		log.Printf("level=warn component=service op=evaluate_answer outcome=debit_failed account_id=%s err=%v", accountID, err)
		return nil, err
	}

	return &domain.EvaluationResult{
		Feedback:         feedback,
		CreditsConsumed:  s.evaluationCost,
		RemainingCredits: updated.Credits,
	}, nil
}

// ExplainTopic answers a free-tier explanation request. No credit is consumed.
func (s *Service) ExplainTopic(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrInvalidTopic
	}
	explanation, err := s.evaluator.ExplainTopic(ctx, topic)
	if err != nil {
		return "", fmt.Errorf("topic explanation failed: %w", err)
	}
	return explanation, nil
}

// publish sends a gateway notice best-effort; failures only log.
func (s *Service) publish(ctx context.Context, routingKey string, payload interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, EventsExchange, routingKey, payload); err != nil {
		log.Printf("level=warn component=service msg=\"notice publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
