package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mayadupare9-source/UPSC-Bot/internal/app"
	"github.com/mayadupare9-source/UPSC-Bot/internal/domain"
	"github.com/mayadupare9-source/UPSC-Bot/internal/store"
)

const testAPIKey = "test-internal-key"

// memoryRepository is a minimal in-memory store.Repository for handler tests.
type memoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{accounts: make(map[string]*domain.Account)}
}

func (m *memoryRepository) GetOrCreateAccount(ctx context.Context, id string, referrerID *string, startingCredits int64, notice *store.OutboxEnqueue) (*domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[id]; ok {
		dup := *existing
		return &dup, false, nil
	}
	now := time.Now().UTC()
	account := &domain.Account{ID: id, Credits: startingCredits, ReferrerID: referrerID, CreatedAt: now, UpdatedAt: now}
	m.accounts[id] = account
	dup := *account
	return &dup, true, nil
}

func (m *memoryRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	dup := *account
	return &dup, nil
}

func (m *memoryRepository) ConsumeCredits(ctx context.Context, id string, amount int64) (*domain.ConsumeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if account.Credits < amount {
		return nil, store.ErrInsufficientCredits
	}
	account.Credits -= amount
	credited := false
	if account.ReferrerID != nil {
		if referrer, ok := m.accounts[*account.ReferrerID]; ok {
			referrer.Credits += amount
			credited = true
		}
	}
	dup := *account
	return &domain.ConsumeResult{Account: &dup, ReferrerID: account.ReferrerID, ReferrerCredited: credited}, nil
}

func (m *memoryRepository) GrantCredits(ctx context.Context, id string, amount int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		now := time.Now().UTC()
		account = &domain.Account{ID: id, CreatedAt: now, UpdatedAt: now}
		m.accounts[id] = account
	}
	account.Credits += amount
	dup := *account
	return &dup, nil
}

func (m *memoryRepository) ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]store.OutboxMessage, error) {
	return nil, nil
}

func (m *memoryRepository) MarkOutboxPublished(ctx context.Context, id int64) error { return nil }

func (m *memoryRepository) MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error {
	return nil
}

type staticEvaluator struct{}

func (staticEvaluator) ScoreAnswer(ctx context.Context, imageBase64 string) (string, error) {
	return "8/10. Good structure.", nil
}

func (staticEvaluator) ExplainTopic(ctx context.Context, topic string) (string, error) {
	return "explanation of " + topic, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}
func (nopPublisher) Close() {}

func newTestRouter(t *testing.T) (http.Handler, *memoryRepository) {
	t.Helper()
	repo := newMemoryRepository()
	service := app.NewService(repo, staticEvaluator{}, nopPublisher{}, "admin-1", 3, 1)
	handlers := NewCreditHandlers(service)
	return CreditRoutes(handlers, testAPIKey), repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-Internal-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAPIKey(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts/sync", domain.SyncAccountRequest{AccountID: "user-1"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", rec.Code)
	}
}

func TestSyncAccountHandlerCreatesAccount(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts/sync", domain.SyncAccountRequest{AccountID: "user-1", FirstName: "Asha"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first sync, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Account domain.Account `json:"account"`
		Created bool           `json:"created"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Created || resp.Account.Credits != 3 {
		t.Fatalf("unexpected sync response: %+v", resp)
	}

	rec = doJSON(t, router, http.MethodPost, "/accounts/sync", domain.SyncAccountRequest{AccountID: "user-1"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat sync, got %d", rec.Code)
	}
}

func TestGetAccountHandlerNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/accounts/ghost", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}
}

func TestConsumeCreditsHandlerStatusMapping(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/accounts/sync", domain.SyncAccountRequest{AccountID: "user-1"}, true)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/credits/consume", domain.ConsumeCreditsRequest{AccountID: "user-1", Amount: 1}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("consume %d: expected 200, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/credits/consume", domain.ConsumeCreditsRequest{AccountID: "user-1", Amount: 1}, true)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on exhausted balance, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/credits/consume", domain.ConsumeCreditsRequest{AccountID: "ghost", Amount: 1}, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/credits/consume", domain.ConsumeCreditsRequest{AccountID: "user-1", Amount: 0}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
	}
}

func TestGrantCreditsHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/credits/grant", domain.GrantCreditsRequest{AccountID: "user-new", Amount: 10}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var account domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if account.Credits != 10 {
		t.Fatalf("expected balance 10, got %d", account.Credits)
	}

	rec = doJSON(t, router, http.MethodPost, "/credits/grant", domain.GrantCreditsRequest{AccountID: "user-new", Amount: -1}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", rec.Code)
	}
}

func TestAdminGrantHandlerAuthorization(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/admin/credits/grant", domain.AdminGrantRequest{CallerID: "user-evil", TargetID: "user-1", Amount: 100}, true)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-admin caller, got %d", rec.Code)
	}
	if _, err := repo.GetAccount(context.Background(), "user-1"); err != store.ErrAccountNotFound {
		t.Fatalf("expected no mutation from rejected admin grant, got %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/admin/credits/grant", domain.AdminGrantRequest{CallerID: "admin-1", TargetID: "user-1", Amount: 100}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin caller, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateAnswerHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/accounts/sync", domain.SyncAccountRequest{AccountID: "user-1"}, true)

	rec := doJSON(t, router, http.MethodPost, "/evaluations", domain.EvaluateAnswerRequest{AccountID: "user-1", ImageBase64: "aGVsbG8="}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.EvaluationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.CreditsConsumed != 1 || result.RemainingCredits != 2 {
		t.Fatalf("unexpected accounting: %+v", result)
	}
}

func TestExplainTopicHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/explanations", domain.ExplainTopicRequest{Topic: "Federalism"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["explanation"] == "" {
		t.Fatal("expected a non-empty explanation")
	}
}
