/**
 * @description
 * This file contains the HTTP handlers for the credit-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as
 * the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mayadupare9-source/UPSC-Bot/internal/app"
	"github.com/mayadupare9-source/UPSC-Bot/internal/domain"
	"github.com/mayadupare9-source/UPSC-Bot/internal/store"
)

// CreditHandlers holds the application service that handlers will use.
type CreditHandlers struct {
	service *app.Service
}

// NewCreditHandlers creates a new instance of CreditHandlers.
func NewCreditHandlers(service *app.Service) *CreditHandlers {
	return &CreditHandlers{service: service}
}

// syncAccountResponse tells the gateway whether this contact created the account.
type syncAccountResponse struct {
	Account *domain.Account `json:"account"`
	Created bool            `json:"created"`
}

// SyncAccountHandler handles the gateway's first-contact account sync.
func (h *CreditHandlers) SyncAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SyncAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=sync_account outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	account, created, err := h.service.SyncAccount(r.Context(), req.AccountID, req.FirstName, req.ReferralToken)
	if err != nil {
		h.writeServiceError(w, "sync_account", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, syncAccountResponse{Account: account, Created: created})
}

// GetAccountHandler returns the account for the URL's accountID.
func (h *CreditHandlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, "get_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ConsumeCreditsHandler debits credits and applies the referral credit-back.
func (h *CreditHandlers) ConsumeCreditsHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ConsumeCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=consume_credits outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	account, err := h.service.Consume(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, "consume_credits", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// GrantCreditsHandler adds credits unconditionally, creating the account if needed.
func (h *CreditHandlers) GrantCreditsHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=grant_credits outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	account, err := h.service.Grant(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, "grant_credits", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// AdminGrantHandler handles the admin top-up path. The gateway authenticates
// the chat user and forwards their id as caller_id; the service compares it
// against the configured administrator.
func (h *CreditHandlers) AdminGrantHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=admin_grant outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	account, err := h.service.AdminGrant(r.Context(), req.CallerID, req.TargetID, req.Amount)
	if err != nil {
		h.writeServiceError(w, "admin_grant", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// EvaluateAnswerHandler runs the paid answer-evaluation workflow.
func (h *CreditHandlers) EvaluateAnswerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.EvaluateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=evaluate_answer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.EvaluateAnswer(r.Context(), req.AccountID, req.ImageBase64)
	if err != nil {
		h.writeServiceError(w, "evaluate_answer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ExplainTopicHandler answers a free-tier explanation request.
func (h *CreditHandlers) ExplainTopicHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ExplainTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=explain_topic outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	explanation, err := h.service.ExplainTopic(r.Context(), req.Topic)
	if err != nil {
		h.writeServiceError(w, "explain_topic", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func (h *CreditHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientCredits):
		h.writeError(w, http.StatusPaymentRequired, "Insufficient credits")
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, app.ErrUnauthorizedAdmin):
		h.writeError(w, http.StatusUnauthorized, "Caller is not authorized for admin grants")
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Evaluation rate limit exceeded. Please wait and try again.")
	case errors.Is(err, app.ErrInvalidAccountID),
		errors.Is(err, app.ErrInvalidGrantAmount),
		errors.Is(err, app.ErrInvalidConsumeAmount),
		errors.Is(err, app.ErrInvalidTopic),
		errors.Is(err, app.ErrInvalidSubmission):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"request failed\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *CreditHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *CreditHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
