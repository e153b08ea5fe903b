package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"arbsim/internal/apperror"
)

// envelope is the JSON response shape for every API route.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleBotStart starts the trading loops.
// POST /api/bot/start
func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Start(s.baseCtx); err != nil {
		if apperror.HasCode(err, apperror.CodeBotAlreadyRunning) {
			writeJSON(w, http.StatusOK, envelope{Success: false, Message: "Bot is already running"})
			return
		}
		s.logger.Error("bot start failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Failed to start bot"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Bot started"})
}

// handleBotStop stops the trading loops.
// POST /api/bot/stop
func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	s.bot.Stop()
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Bot stopped"})
}

// handleBotReset resets the portfolio to the requested balance.
// POST /api/bot/reset
func (s *Server) handleBotReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body"})
		return
	}

	balance := decimal.NewFromFloat(body.Balance)
	if body.Balance == 0 {
		balance = decimal.NewFromInt(10000)
	}
	if !balance.IsPositive() {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Balance must be positive"})
		return
	}

	s.bot.Reset(balance)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Portfolio reset to %s", balance.StringFixed(2)),
	})
}

// handleBotStatus returns the combined bot and portfolio status.
// GET /api/bot/status
func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.bot.Status()})
}

// handlePortfolioStatus returns the portfolio projection.
// GET /api/portfolio/status
func (s *Server) handlePortfolioStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.ledger.Status()})
}

// handlePortfolioReport returns the performance report.
// GET /api/portfolio/report
func (s *Server) handlePortfolioReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.ledger.Report()})
}
