package handlers

import (
	"net/http"
	"strconv"

	"finagg/internal/middleware"
	"finagg/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountType := models.FITypeDeposit
	if raw := r.URL.Query().Get("type"); raw != "" {
		accountType = models.NormalizeFIType(raw)
	}
	accounts, err := h.accounts.ListByUserAndType(r.Context(), user.ID, accountType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	normalized := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		entry := map[string]any{
			"id":            account.ID,
			"fip_id":        account.FIPID,
			"fip_name":      account.FIPName,
			"masked_number": account.MaskedAccountNumber,
			"account_type":  account.AccountType,
			"branch":        account.Branch,
			"ifsc_code":     account.IFSCCode,
			"opening_date":  account.OpeningDate,
			"currency":      account.Currency,
			"created_at":    account.CreatedAt,
		}
		if account.CurrentBalance.Valid {
			entry["current_balance"] = account.CurrentBalance.Decimal.StringFixed(2)
		}
		normalized = append(normalized, entry)
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	owned, err := h.accounts.OwnedByUser(r.Context(), accountID, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	if !owned {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}
	query := r.URL.Query()
	limit := parsePositive(query.Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	offset := parsePositive(query.Get("offset"), 0)
	transactions, err := h.transactions.ListByAccount(r.Context(), accountID,
		query.Get("sort_by"), query.Get("sort_order"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(transactions))
	for _, txn := range transactions {
		entry := map[string]any{
			"id":             txn.ID,
			"amount":         txn.Amount.StringFixed(2),
			"mode":           txn.Mode,
			"narration":      txn.Narration,
			"timestamp":      txn.Timestamp,
			"transaction_id": txn.TransactionID,
			"type":           txn.Type,
		}
		if txn.Balance.Valid {
			entry["balance"] = txn.Balance.Decimal.StringFixed(2)
		}
		normalized = append(normalized, entry)
	}
	respondJSON(w, http.StatusOK, normalized)
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
