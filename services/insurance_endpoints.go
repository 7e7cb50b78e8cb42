package services

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

// InsuranceEndpoints covers the rental insurance options offered on contracts and
// the fleet policies held on vehicles
type InsuranceEndpoints struct {
	repo *repository.GORMRepository
}

type InsuranceOptionRequest struct {
	Name        string  `json:"name" validate:"required,max=150"`
	Description string  `json:"description"`
	DailyRate   float64 `json:"daily_rate" validate:"gte=0"`
	Deductible  float64 `json:"deductible" validate:"gte=0"`
	IsActive    *bool   `json:"is_active"`
}

type InsurancePolicyRequest struct {
	PolicyNumber string  `json:"policy_number" validate:"required,max=64"`
	Provider     string  `json:"provider" validate:"required,max=255"`
	VehicleID    string  `json:"vehicle_id" validate:"required,uuid"`
	StartDate    Date    `json:"start_date"`
	EndDate      Date    `json:"end_date"`
	Premium      float64 `json:"premium" validate:"gte=0"`
	Coverage     string  `json:"coverage"`
}

func NewInsuranceEndpoints(repo *repository.GORMRepository) *InsuranceEndpoints {
	return &InsuranceEndpoints{repo: repo}
}

func (e *InsuranceEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/insurance", func(r chi.Router) {
		r.Route("/options", func(r chi.Router) {
			r.Get("/", e.ListOptionsHandler)
			r.Post("/", e.CreateOptionHandler)
			r.Get("/{id}", e.GetOptionHandler)
			r.Put("/{id}", e.UpdateOptionHandler)
			r.Delete("/{id}", e.DeleteOptionHandler)
		})
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", e.ListPoliciesHandler)
			r.Post("/", e.CreatePolicyHandler)
			r.Get("/{id}", e.GetPolicyHandler)
			r.Put("/{id}", e.UpdatePolicyHandler)
			r.Delete("/{id}", e.DeletePolicyHandler)
		})
	})
}

func (e *InsuranceEndpoints) ListOptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := parseListParams(r)
	options, total, err := e.repo.ListInsuranceOptions(r.Context(), p)
	if err != nil {
		handleError(w, r, err, "list insurance options")
		return
	}
	respondList(w, options, p, total)
}

func (e *InsuranceEndpoints) loadOption(r *http.Request) (*models.InsuranceOption, error) {
	option, err := e.repo.GetInsuranceOption(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, notFound("Insurance option")
	}
	return option, nil
}

func (e *InsuranceEndpoints) GetOptionHandler(w http.ResponseWriter, r *http.Request) {
	option, err := e.loadOption(r)
	if err != nil {
		handleError(w, r, err, "get insurance option")
		return
	}
	respondData(w, http.StatusOK, option)
}

func (e *InsuranceEndpoints) CreateOptionHandler(w http.ResponseWriter, r *http.Request) {
	var req InsuranceOptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create insurance option")
		return
	}
	option := &models.InsuranceOption{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		DailyRate:   req.DailyRate,
		Deductible:  req.Deductible,
		IsActive:    true,
	}
	if err := e.repo.CreateInsuranceOption(r.Context(), option); err != nil {
		handleError(w, r, err, "create insurance option")
		return
	}
	// is_active has a column default, so false only sticks through an update
	if req.IsActive != nil && !*req.IsActive {
		option.IsActive = false
		if err := e.repo.UpdateInsuranceOption(r.Context(), option); err != nil {
			handleError(w, r, err, "create insurance option")
			return
		}
	}
	respondCreated(w, option, "Insurance option created")
}

func (e *InsuranceEndpoints) UpdateOptionHandler(w http.ResponseWriter, r *http.Request) {
	var req InsuranceOptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update insurance option")
		return
	}
	option, err := e.loadOption(r)
	if err != nil {
		handleError(w, r, err, "update insurance option")
		return
	}
	option.Name = strings.TrimSpace(req.Name)
	option.Description = req.Description
	option.DailyRate = req.DailyRate
	option.Deductible = req.Deductible
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}
	if err := e.repo.UpdateInsuranceOption(r.Context(), option); err != nil {
		handleError(w, r, err, "update insurance option")
		return
	}
	respondData(w, http.StatusOK, option)
}

func (e *InsuranceEndpoints) DeleteOptionHandler(w http.ResponseWriter, r *http.Request) {
	option, err := e.loadOption(r)
	if err != nil {
		handleError(w, r, err, "delete insurance option")
		return
	}
	if err := e.repo.DeleteInsuranceOption(r.Context(), option.ID); err != nil {
		handleError(w, r, err, "delete insurance option")
		return
	}
	respondMessage(w, "Insurance option deleted")
}

func (e *InsuranceEndpoints) ListPoliciesHandler(w http.ResponseWriter, r *http.Request) {
	f := repository.PolicyFilter{ListParams: parseListParams(r), VehicleID: r.URL.Query().Get("vehicle_id")}
	policies, total, err := e.repo.ListInsurancePolicies(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "list insurance policies")
		return
	}
	respondList(w, policies, f.ListParams, total)
}

func (e *InsuranceEndpoints) loadPolicy(r *http.Request) (*models.InsurancePolicy, error) {
	policy, err := e.repo.GetInsurancePolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, notFound("Insurance policy")
	}
	return policy, nil
}

func (e *InsuranceEndpoints) GetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	policy, err := e.loadPolicy(r)
	if err != nil {
		handleError(w, r, err, "get insurance policy")
		return
	}
	respondData(w, http.StatusOK, policy)
}

func (e *InsuranceEndpoints) bindPolicy(r *http.Request, req *InsurancePolicyRequest, p *models.InsurancePolicy) error {
	if req.StartDate.IsZero() {
		return badRequest("start_date is required")
	}
	if req.EndDate.IsZero() {
		return badRequest("end_date is required")
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return badRequest("end_date must not be before start_date")
	}
	vehicle, err := e.repo.GetVehicle(r.Context(), req.VehicleID)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return badRequest("Vehicle does not exist")
	}

	p.PolicyNumber = strings.TrimSpace(req.PolicyNumber)
	p.Provider = strings.TrimSpace(req.Provider)
	p.VehicleID = req.VehicleID
	p.StartDate = req.StartDate.Time
	p.EndDate = req.EndDate.Time
	p.Premium = req.Premium
	p.Coverage = req.Coverage
	p.Vehicle = nil
	return nil
}

func (e *InsuranceEndpoints) CreatePolicyHandler(w http.ResponseWriter, r *http.Request) {
	var req InsurancePolicyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create insurance policy")
		return
	}
	policy := &models.InsurancePolicy{}
	if err := e.bindPolicy(r, &req, policy); err != nil {
		handleError(w, r, err, "create insurance policy")
		return
	}
	if err := e.repo.CreateInsurancePolicy(r.Context(), policy); err != nil {
		handleError(w, r, err, "create insurance policy")
		return
	}
	respondCreated(w, policy, "Insurance policy created")
}

func (e *InsuranceEndpoints) UpdatePolicyHandler(w http.ResponseWriter, r *http.Request) {
	var req InsurancePolicyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update insurance policy")
		return
	}
	policy, err := e.loadPolicy(r)
	if err != nil {
		handleError(w, r, err, "update insurance policy")
		return
	}
	if err := e.bindPolicy(r, &req, policy); err != nil {
		handleError(w, r, err, "update insurance policy")
		return
	}
	if err := e.repo.UpdateInsurancePolicy(r.Context(), policy); err != nil {
		handleError(w, r, err, "update insurance policy")
		return
	}
	respondData(w, http.StatusOK, policy)
}

func (e *InsuranceEndpoints) DeletePolicyHandler(w http.ResponseWriter, r *http.Request) {
	policy, err := e.loadPolicy(r)
	if err != nil {
		handleError(w, r, err, "delete insurance policy")
		return
	}
	if err := e.repo.DeleteInsurancePolicy(r.Context(), policy.ID); err != nil {
		handleError(w, r, err, "delete insurance policy")
		return
	}
	respondMessage(w, "Insurance policy deleted")
}
