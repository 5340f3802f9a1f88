package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/ecbarko/ecbarko-db/models"
	"github.com/ecbarko/ecbarko-db/store"
)

const (
	msgUserNotFound   = "User not found"
	msgInvalidBody    = "Invalid request body"
	msgInternalError  = "Internal server error"
	maxLoadBodyLength = 1 << 20
)

// AccountHandler serves the balance, history and load endpoints.
type AccountHandler struct {
	store         store.AccountStore
	maxLoadAmount float64
	metrics       metrics.Collector
	logger        *logging.Logger
	now           func() time.Time
}

// NewAccountHandler builds the handler. maxLoadAmount <= 0 disables the
// upper bound on a single load.
func NewAccountHandler(s store.AccountStore, maxLoadAmount float64, collector metrics.Collector, logger *logging.Logger) *AccountHandler {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.L()
	}

	return &AccountHandler{
		store:         s,
		maxLoadAmount: maxLoadAmount,
		metrics:       collector,
		logger:        logger.Named("accounts"),
		now:           time.Now,
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
