package handlers

import (
	"net/http"
	"time"

	"github.com/mbertoldo/finbook/internal/handlers/render"
	"github.com/mbertoldo/finbook/internal/handlers/userctx"
	"github.com/mbertoldo/finbook/internal/logger"
)

func handleCurrentBalance(balances balanceService, l logger.Logger) http.Handler {
	type response struct {
		Current float64 `json:"current"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		value, err := balances.CurrentBalance(r.Context(), user.ID)
		if err != nil {
			// The app has always shown zero when the balance can't be
			// read; keep that contract but leave a trace of the failure
			l.Error("Failed to read balance, rendering zero", "user_id", user.ID, "error", err)
			render.JSON(w, response{Current: 0})
			return
		}

		current, _ := value.Float64()
		render.JSON(w, response{Current: current})
	})
}

func handleBalanceHistory(balances balanceService, l logger.Logger) http.Handler {
	type snapshot struct {
		Balance float64 `json:"current_balance"`
		Date    string  `json:"date"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		history, err := balances.History(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to read balance history", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		snapshots := make([]snapshot, 0, len(history))
		for _, s := range history {
			value, _ := s.Value.Float64()
			snapshots = append(snapshots, snapshot{
				Balance: value,
				Date:    s.Date.Format(time.RFC3339),
			})
		}
		render.JSON(w, snapshots)
	})
}
