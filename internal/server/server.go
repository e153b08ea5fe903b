package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	engineapp "arbsim/business/engine/app"
	pfapp "arbsim/business/portfolio/app"
)

// Server is the HTTP control surface for the simulator: bot lifecycle,
// portfolio projections and the websocket feed.
type Server struct {
	httpServer *http.Server
	bot        *engineapp.Bot
	ledger     *pfapp.Ledger
	hub        *Hub
	baseCtx    context.Context
	logger     *slog.Logger
}

// NewServer wires the routes. baseCtx becomes the parent of the bot loops
// started through the API.
func NewServer(baseCtx context.Context, port int, bot *engineapp.Bot, ledger *pfapp.Ledger, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		bot:     bot,
		ledger:  ledger,
		hub:     hub,
		baseCtx: baseCtx,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bot/start", s.handleBotStart)
	mux.HandleFunc("POST /api/bot/stop", s.handleBotStop)
	mux.HandleFunc("POST /api/bot/reset", s.handleBotReset)
	mux.HandleFunc("GET /api/bot/status", s.handleBotStatus)
	mux.HandleFunc("GET /api/portfolio/status", s.handlePortfolioStatus)
	mux.HandleFunc("GET /api/portfolio/report", s.handlePortfolioReport)
	mux.HandleFunc("GET /ws", hub.HandleWS)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
