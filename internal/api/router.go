package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/dutchscore/internal/api/handler"
	"github.com/mcoot/dutchscore/internal/api/middleware"
	basemw "github.com/mcoot/dutchscore/internal/middleware"
	"github.com/mcoot/dutchscore/internal/relay"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	Relay  *relay.Server
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Relay)

	loggingMiddleware := basemw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// Websocket relay endpoint
	wsHandler := recoveryMiddleware(loggingMiddleware(http.HandlerFunc(cfg.Relay.HandleWS)))
	r.Handle("/ws", wsHandler).Methods(http.MethodGet)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", roomHandler.Health).Methods(http.MethodGet)

	return r
}
