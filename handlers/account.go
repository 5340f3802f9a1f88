package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ecbarko/ecbarko-db/models"
	"github.com/ecbarko/ecbarko-db/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GetBalance handles GET /balance/{userId}.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := h.findAccount(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.BalanceResponse{Balance: account.Balance})
}

// GetHistory handles GET /history/{userId}.
func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := h.findAccount(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{History: account.History()})
}

func (h *AccountHandler) findAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	// Loads store the trimmed id, so reads look it up the same way.
	userID := strings.TrimSpace(mux.Vars(r)["userId"])

	account, err := h.store.FindByUserID(r.Context(), userID)
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("account lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return nil, false
	}

	return account, true
}

// LoadBalance handles POST /load. The account is created by its first load.
func (h *AccountHandler) LoadBalance(w http.ResponseWriter, r *http.Request) {
	var req models.LoadRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxLoadBodyLength)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := req.Validate(h.maxLoadAmount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.store.Credit(r.Context(), req.UserID, req.Amount, h.now())
	if err != nil {
		h.metrics.RecordCredit(req.Amount, false)
		h.logger.Error("load failed",
			zap.String("user_id", req.UserID),
			zap.Float64("amount", req.Amount),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	h.metrics.RecordCredit(req.Amount, true)
	h.logger.Info("balance loaded",
		zap.String("user_id", req.UserID),
		zap.Float64("amount", req.Amount),
		zap.Float64("new_balance", account.Balance),
	)

	writeJSON(w, http.StatusOK, models.LoadResponse{Success: true, NewBalance: account.Balance})
}
