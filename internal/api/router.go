package api

import (
	"encoding/json"
	"net/http"

	"cardbook/internal/auth"
	"cardbook/internal/config"
	"cardbook/internal/contact"
	"cardbook/middleware"

	"github.com/gorilla/mux"
)

// Health reports what the running process was configured with.
type Health struct {
	Status     string   `json:"status"`
	Store      string   `json:"store"`
	Enrichment string   `json:"enrichment"`
	Providers  []string `json:"providers"`
}

func NewRouter(cfg *config.Config, contacts *contact.ContactHandlers, health Health) http.Handler {
	authHandlers := auth.NewAuthHandlers(cfg)
	mw := middleware.NewMiddleware(cfg)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler(health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", authHandlers.LoginHandler).Methods("POST")
	api.HandleFunc("/check-auth", authHandlers.CheckAuthHandler).Methods("GET")
	contacts.RegisterRoutes(api, mw.AuthMiddleware)

	return middleware.LoggingMiddleware(middleware.SetupCORS()(r))
}

func healthHandler(h Health) http.HandlerFunc {
	h.Status = "ok"
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h)
	}
}
