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

// activityKinds are the supported activity types
var activityKinds = map[string]bool{
	"call":    true,
	"email":   true,
	"meeting": true,
	"task":    true,
	"note":    true,
}

// ActivityHandlers serves the tenant-scoped activity CRUD surface
type ActivityHandlers struct {
	store      storage.ActivityStore
	classifier *apperrors.Classifier
}

// NewActivityHandlers creates the activity handler set
func NewActivityHandlers(store storage.ActivityStore, classifier *apperrors.Classifier) *ActivityHandlers {
	return &ActivityHandlers{store: store, classifier: classifier}
}

// RegisterRoutes registers the activity routes
func (h *ActivityHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/activities", h.list).Methods("GET")
	router.HandleFunc("/api/v1/activities", h.create).Methods("POST")
	router.HandleFunc("/api/v1/activities/{id}", h.get).Methods("GET")
	router.HandleFunc("/api/v1/activities/{id}", h.update).Methods("PUT")
	router.HandleFunc("/api/v1/activities/{id}", h.delete).Methods("DELETE")
}

type activityRequest struct {
	ContactID     string     `json:"contact_id"`
	OpportunityID string     `json:"opportunity_id"`
	Kind          string     `json:"kind"`
	Subject       string     `json:"subject"`
	Notes         string     `json:"notes"`
	DueAt         *time.Time `json:"due_at"`
	Completed     bool       `json:"completed"`
}

func (r activityRequest) validate() error {
	if !activityKinds[r.Kind] {
		return errors.New("invalid activity kind: " + r.Kind)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return errors.New("activity subject is required")
	}
	return nil
}

func (h *ActivityHandlers) list(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	activities, err := h.store.ListActivities(r.Context(), principal.TenantID)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if activities == nil {
		activities = []*storage.Activity{}
	}
	httputil.WriteSuccess(w, activities)
}

func (h *ActivityHandlers) get(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	activity, err := h.store.GetActivity(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Activity not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, activity)
}

func (h *ActivityHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req activityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	activity := &storage.Activity{
		TenantID:      principal.TenantID,
		ContactID:     req.ContactID,
		OpportunityID: req.OpportunityID,
		Kind:          req.Kind,
		Subject:       req.Subject,
		Notes:         req.Notes,
		DueAt:         req.DueAt,
		Completed:     req.Completed,
	}
	if err := h.store.CreateActivity(r.Context(), activity); err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteCreated(w, activity)
}

func (h *ActivityHandlers) update(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req activityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	activity := &storage.Activity{
		ID:            mux.Vars(r)["id"],
		TenantID:      principal.TenantID,
		ContactID:     req.ContactID,
		OpportunityID: req.OpportunityID,
		Kind:          req.Kind,
		Subject:       req.Subject,
		Notes:         req.Notes,
		DueAt:         req.DueAt,
		Completed:     req.Completed,
	}
	if err := h.store.UpdateActivity(r.Context(), activity); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.classifier.Respond(w, r, apperrors.NotFound("Activity not found"))
			return
		}
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, activity)
}

func (h *ActivityHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	err := h.store.DeleteActivity(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Activity not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteNoContent(w)
}
