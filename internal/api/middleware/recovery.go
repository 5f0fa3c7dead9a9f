package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/dutchscore/internal/api/apierr"
	"github.com/mcoot/dutchscore/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics become JSON 500 responses, except on websocket upgrades where the
// connection may already be hijacked.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
