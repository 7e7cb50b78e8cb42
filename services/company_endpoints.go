package services

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

type CompanyEndpoints struct {
	repo *repository.GORMRepository
}

type CompanyRequest struct {
	Name               string  `json:"name" validate:"required,max=255"`
	RegistrationNumber string  `json:"registration_number" validate:"required,max=64"`
	TaxNumber          string  `json:"tax_number" validate:"max=64"`
	Email              string  `json:"email" validate:"omitempty,email"`
	Phone              string  `json:"phone" validate:"max=50"`
	Address            string  `json:"address"`
	ContactPerson      string  `json:"contact_person" validate:"max=255"`
	CreditLimit        float64 `json:"credit_limit" validate:"gte=0"`
}

func NewCompanyEndpoints(repo *repository.GORMRepository) *CompanyEndpoints {
	return &CompanyEndpoints{repo: repo}
}

func (e *CompanyEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", e.ListCompaniesHandler)
		r.Post("/", e.CreateCompanyHandler)
		r.Get("/{id}", e.GetCompanyHandler)
		r.Put("/{id}", e.UpdateCompanyHandler)
		r.Delete("/{id}", e.DeleteCompanyHandler)
	})
}

func (e *CompanyEndpoints) ListCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	p := parseListParams(r)
	companies, total, err := e.repo.ListCompanies(r.Context(), p)
	if err != nil {
		handleError(w, r, err, "list companies")
		return
	}
	respondList(w, companies, p, total)
}

func (e *CompanyEndpoints) load(r *http.Request) (*models.Company, error) {
	company, err := e.repo.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, notFound("Company")
	}
	return company, nil
}

func (e *CompanyEndpoints) GetCompanyHandler(w http.ResponseWriter, r *http.Request) {
	company, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "get company")
		return
	}
	respondData(w, http.StatusOK, company)
}

func bindCompany(req *CompanyRequest, c *models.Company) {
	c.Name = strings.TrimSpace(req.Name)
	c.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	c.TaxNumber = strings.TrimSpace(req.TaxNumber)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.Address = req.Address
	c.ContactPerson = strings.TrimSpace(req.ContactPerson)
	c.CreditLimit = req.CreditLimit
}

func (e *CompanyEndpoints) CreateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create company")
		return
	}
	company := &models.Company{}
	bindCompany(&req, company)
	if err := e.repo.CreateCompany(r.Context(), company); err != nil {
		handleError(w, r, err, "create company")
		return
	}
	respondCreated(w, company, "Company created")
}

func (e *CompanyEndpoints) UpdateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update company")
		return
	}
	company, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "update company")
		return
	}
	bindCompany(&req, company)
	if err := e.repo.UpdateCompany(r.Context(), company); err != nil {
		handleError(w, r, err, "update company")
		return
	}
	respondData(w, http.StatusOK, company)
}

func (e *CompanyEndpoints) DeleteCompanyHandler(w http.ResponseWriter, r *http.Request) {
	company, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "delete company")
		return
	}
	if err := e.repo.DeleteCompany(r.Context(), company.ID); err != nil {
		handleError(w, r, err, "delete company")
		return
	}
	respondMessage(w, "Company deleted")
}
