package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/models"
	"github.com/vidspark/vidspark/internal/user"
)

// AccountReader is the slice of the ledger the profile endpoints need.
type AccountReader interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]*models.LedgerEntryDB, error)
}

type AccountHandler struct {
	ledger AccountReader
	log    *logrus.Logger
}

func NewAccountHandler(ledger AccountReader, log *logrus.Logger) *AccountHandler {
	return &AccountHandler{ledger: ledger, log: log}
}

type balanceResponse struct {
	Credits int64 `json:"credits"`
}

type historyEntryResponse struct {
	Delta       int64     `json:"delta"`
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Me returns the account the bootstrap middleware resolved for this
// request.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}
	writeJSON(w, h.log, account)
}

// Balance reads the stored balance fresh rather than echoing the value
// captured at bootstrap time.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}

	credits, err := h.ledger.GetBalance(r.Context(), account.ID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", account.ID).Error("Failed to read balance")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to read balance")
		return
	}
	writeJSON(w, h.log, balanceResponse{Credits: credits})
}

func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	entries, err := h.ledger.History(r.Context(), account.ID, limit)
	if err != nil {
		h.log.WithError(err).WithField("user_id", account.ID).Error("Failed to read ledger history")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to read history")
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			Delta:       e.Delta,
			Reason:      string(e.Reason),
			ReferenceID: e.ReferenceID,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, h.log, out)
}
