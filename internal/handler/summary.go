package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/tradebooks/internal/fiscal"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/summary"
)

type summaryService interface {
	GetFinancialSummary(ctx context.Context, fiscalYear int) (*summary.FinancialSummary, error)
}

type SummaryHandler struct {
	summaries summaryService
	now       func() time.Time
}

func NewSummaryHandler(summaries summaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, now: time.Now}
}

// Get reads ?fiscal_year=, defaulting to the fiscal year containing today.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	year := fiscal.YearOf(h.now().UTC())
	if raw := r.URL.Query().Get("fiscal_year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "fiscal_year", Message: "must be an integer"}})
			return
		}
		year = parsed
	}

	out, err := h.summaries.GetFinancialSummary(r.Context(), year)
	if err != nil {
		logging.FromContext(r.Context()).Warn("financial summary failed", "fiscal_year", year, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSummaryDTO(out))
}
