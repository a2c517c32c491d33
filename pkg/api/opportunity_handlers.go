package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/storage"
)

// opportunityStages are the pipeline stages a deal can be in
var opportunityStages = map[string]bool{
	"prospecting": true,
	"qualified":   true,
	"proposal":    true,
	"negotiation": true,
	"closed_won":  true,
	"closed_lost": true,
}

// OpportunityHandlers serves the tenant-scoped opportunity CRUD surface
type OpportunityHandlers struct {
	store      storage.OpportunityStore
	classifier *apperrors.Classifier
}

// NewOpportunityHandlers creates the opportunity handler set
func NewOpportunityHandlers(store storage.OpportunityStore, classifier *apperrors.Classifier) *OpportunityHandlers {
	return &OpportunityHandlers{store: store, classifier: classifier}
}

// RegisterRoutes registers the opportunity routes
func (h *OpportunityHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/opportunities", h.list).Methods("GET")
	router.HandleFunc("/api/v1/opportunities", h.create).Methods("POST")
	router.HandleFunc("/api/v1/opportunities/{id}", h.get).Methods("GET")
	router.HandleFunc("/api/v1/opportunities/{id}", h.update).Methods("PUT")
	router.HandleFunc("/api/v1/opportunities/{id}", h.delete).Methods("DELETE")
}

type opportunityRequest struct {
	CompanyID string     `json:"company_id"`
	Name      string     `json:"name"`
	Stage     string     `json:"stage"`
	Amount    float64    `json:"amount"`
	CloseDate *time.Time `json:"close_date"`
}

func (r opportunityRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("opportunity name is required")
	}
	if !opportunityStages[r.Stage] {
		return errors.New("invalid stage: " + r.Stage)
	}
	if r.Amount < 0 {
		return errors.New("amount cannot be negative")
	}
	return nil
}

func (h *OpportunityHandlers) list(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	opportunities, err := h.store.ListOpportunities(r.Context(), principal.TenantID)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if opportunities == nil {
		opportunities = []*storage.Opportunity{}
	}
	httputil.WriteSuccess(w, opportunities)
}

func (h *OpportunityHandlers) get(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	opportunity, err := h.store.GetOpportunity(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Opportunity not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, opportunity)
}

func (h *OpportunityHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req opportunityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	opportunity := &storage.Opportunity{
		TenantID:  principal.TenantID,
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Stage:     req.Stage,
		Amount:    req.Amount,
		CloseDate: req.CloseDate,
	}
	if err := h.store.CreateOpportunity(r.Context(), opportunity); err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteCreated(w, opportunity)
}

func (h *OpportunityHandlers) update(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req opportunityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	opportunity := &storage.Opportunity{
		ID:        mux.Vars(r)["id"],
		TenantID:  principal.TenantID,
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Stage:     req.Stage,
		Amount:    req.Amount,
		CloseDate: req.CloseDate,
	}
	if err := h.store.UpdateOpportunity(r.Context(), opportunity); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.classifier.Respond(w, r, apperrors.NotFound("Opportunity not found"))
			return
		}
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, opportunity)
}

func (h *OpportunityHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	err := h.store.DeleteOpportunity(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Opportunity not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteNoContent(w)
}
