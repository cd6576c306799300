package contact

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"cardbook/internal/util"
	"cardbook/models"

	"github.com/gorilla/mux"
)

// Enricher accepts geolocation jobs. Implementations must return immediately
// and never report failure to the caller.
type Enricher interface {
	Enqueue(ctx context.Context, job models.EnrichmentJob)
}

type ContactHandlers struct {
	Service  *ContactService
	Enricher Enricher
}

func NewContactHandlers(service *ContactService, enricher Enricher) *ContactHandlers {
	return &ContactHandlers{Service: service, Enricher: enricher}
}

type createContactRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	HowWeMet string `json:"howWeMet"`
}

type createContactResponse struct {
	Index   int            `json:"index"`
	Contact models.Contact `json:"contact"`
}

// RegisterRoutes mounts the contact endpoints on r, wrapped by guard.
func (h *ContactHandlers) RegisterRoutes(r *mux.Router, guard func(http.HandlerFunc) http.HandlerFunc) {
	r.HandleFunc("/owners/{ownerId}/contacts", guard(h.CreateContact)).Methods("POST")
	r.HandleFunc("/owners/{ownerId}/contacts", guard(h.GetContacts)).Methods("GET")
}

func (h *ContactHandlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]

	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	index, created, err := h.Service.AddContact(r.Context(), ownerID, models.Contact{
		Name:     req.Name,
		Surname:  req.Surname,
		Phone:    req.Phone,
		Email:    req.Email,
		HowWeMet: req.HowWeMet,
	})
	if err != nil {
		log.Printf("[contacts] create for owner %s failed: %v", ownerID, err)
		http.Error(w, "failed to save contact", http.StatusInternalServerError)
		return
	}

	// The job outlives this request; enrichment never affects the response.
	h.Enricher.Enqueue(context.WithoutCancel(r.Context()), models.EnrichmentJob{
		OwnerID:      ownerID,
		ContactIndex: index,
		ContactID:    created.ID,
		IP:           util.ClientIP(r),
		EnqueuedAt:   time.Now().UTC(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createContactResponse{Index: index, Contact: created})
}

func (h *ContactHandlers) GetContacts(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]

	list, err := h.Service.List(r.Context(), ownerID)
	if err != nil {
		log.Printf("[contacts] list for owner %s failed: %v", ownerID, err)
		http.Error(w, "failed to load contacts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
