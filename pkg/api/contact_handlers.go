package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/storage"
)

// ContactHandlers serves the tenant-scoped contact CRUD surface
type ContactHandlers struct {
	store      storage.ContactStore
	classifier *apperrors.Classifier
}

// NewContactHandlers creates the contact handler set
func NewContactHandlers(store storage.ContactStore, classifier *apperrors.Classifier) *ContactHandlers {
	return &ContactHandlers{store: store, classifier: classifier}
}

// RegisterRoutes registers the contact routes
func (h *ContactHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/contacts", h.list).Methods("GET")
	router.HandleFunc("/api/v1/contacts", h.create).Methods("POST")
	router.HandleFunc("/api/v1/contacts/{id}", h.get).Methods("GET")
	router.HandleFunc("/api/v1/contacts/{id}", h.update).Methods("PUT")
	router.HandleFunc("/api/v1/contacts/{id}", h.delete).Methods("DELETE")
}

type contactRequest struct {
	CompanyID string `json:"company_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (r contactRequest) validate() error {
	if strings.TrimSpace(r.FirstName) == "" && strings.TrimSpace(r.LastName) == "" {
		return errors.New("a contact needs at least a first or last name")
	}
	return nil
}

func (h *ContactHandlers) list(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	contacts, err := h.store.ListContacts(r.Context(), principal.TenantID)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if contacts == nil {
		contacts = []*storage.Contact{}
	}
	httputil.WriteSuccess(w, contacts)
}

func (h *ContactHandlers) get(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	contact, err := h.store.GetContact(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Contact not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, contact)
}

func (h *ContactHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req contactRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	contact := &storage.Contact{
		TenantID:  principal.TenantID,
		CompanyID: req.CompanyID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := h.store.CreateContact(r.Context(), contact); err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteCreated(w, contact)
}

func (h *ContactHandlers) update(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req contactRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.classifier.Respond(w, r, apperrors.Unprocessable(err.Error()))
		return
	}

	contact := &storage.Contact{
		ID:        mux.Vars(r)["id"],
		TenantID:  principal.TenantID,
		CompanyID: req.CompanyID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := h.store.UpdateContact(r.Context(), contact); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.classifier.Respond(w, r, apperrors.NotFound("Contact not found"))
			return
		}
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, contact)
}

func (h *ContactHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	err := h.store.DeleteContact(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Contact not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteNoContent(w)
}
