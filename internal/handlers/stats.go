package handlers

import (
	"net/http"

	"finagg/internal/middleware"
)

// MonthlyStats serves credit/debit totals per calendar month across all of
// the user's ingested accounts.
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	stats, err := h.transactions.MonthlyStatsByUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stats")
		return
	}
	normalized := make([]map[string]any, 0, len(stats))
	for _, stat := range stats {
		normalized = append(normalized, map[string]any{
			"month":        stat.Month.Format("2006-01"),
			"credit_total": stat.CreditTotal.StringFixed(2),
			"debit_total":  stat.DebitTotal.StringFixed(2),
			"credit_count": stat.CreditCount,
			"debit_count":  stat.DebitCount,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) ModeStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	stats, err := h.transactions.ModeStatsByUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stats")
		return
	}
	normalized := make([]map[string]any, 0, len(stats))
	for _, stat := range stats {
		normalized = append(normalized, map[string]any{
			"mode":  stat.Mode,
			"total": stat.Total.StringFixed(2),
			"count": stat.Count,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}
