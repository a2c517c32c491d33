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

// CompanyHandlers serves the tenant-scoped company CRUD surface
type CompanyHandlers struct {
	store      storage.CompanyStore
	classifier *apperrors.Classifier
}

// NewCompanyHandlers creates the company handler set
func NewCompanyHandlers(store storage.CompanyStore, classifier *apperrors.Classifier) *CompanyHandlers {
	return &CompanyHandlers{store: store, classifier: classifier}
}

// RegisterRoutes registers the company routes
func (h *CompanyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/companies", h.list).Methods("GET")
	router.HandleFunc("/api/v1/companies", h.create).Methods("POST")
	router.HandleFunc("/api/v1/companies/{id}", h.get).Methods("GET")
	router.HandleFunc("/api/v1/companies/{id}", h.update).Methods("PUT")
	router.HandleFunc("/api/v1/companies/{id}", h.delete).Methods("DELETE")
}

type companyRequest struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Industry string `json:"industry"`
}

func (h *CompanyHandlers) list(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	companies, err := h.store.ListCompanies(r.Context(), principal.TenantID)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if companies == nil {
		companies = []*storage.Company{}
	}
	httputil.WriteSuccess(w, companies)
}

func (h *CompanyHandlers) get(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	company, err := h.store.GetCompany(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Company not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, company)
}

func (h *CompanyHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req companyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.classifier.Respond(w, r, apperrors.Unprocessable("Company name is required"))
		return
	}

	company := &storage.Company{
		TenantID: principal.TenantID,
		Name:     req.Name,
		Domain:   req.Domain,
		Industry: req.Industry,
	}
	if err := h.store.CreateCompany(r.Context(), company); err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteCreated(w, company)
}

func (h *CompanyHandlers) update(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	var req companyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.classifier.Respond(w, r, apperrors.Unprocessable("Company name is required"))
		return
	}

	company := &storage.Company{
		ID:       mux.Vars(r)["id"],
		TenantID: principal.TenantID,
		Name:     req.Name,
		Domain:   req.Domain,
		Industry: req.Industry,
	}
	if err := h.store.UpdateCompany(r.Context(), company); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.classifier.Respond(w, r, apperrors.NotFound("Company not found"))
			return
		}
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteSuccess(w, company)
}

func (h *CompanyHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}

	err := h.store.DeleteCompany(r.Context(), principal.TenantID, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.NotFound("Company not found"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	httputil.WriteNoContent(w)
}
