package services

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

type CustomerEndpoints struct {
	repo *repository.GORMRepository
}

type CustomerRequest struct {
	FullName         string `json:"full_name" validate:"required,max=255"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone" validate:"required,max=50"`
	NationalID       string `json:"national_id" validate:"required,max=64"`
	LicenseNumber    string `json:"license_number" validate:"required,max=64"`
	LicenseExpiry    *Date  `json:"license_expiry"`
	DateOfBirth      *Date  `json:"date_of_birth"`
	Address          string `json:"address"`
	NationalityID    string `json:"nationality_id" validate:"omitempty,uuid"`
	ProfessionID     string `json:"profession_id" validate:"omitempty,uuid"`
	ClassificationID string `json:"classification_id" validate:"omitempty,uuid"`
	LicenseTypeID    string `json:"license_type_id" validate:"omitempty,uuid"`
	CompanyID        string `json:"company_id" validate:"omitempty,uuid"`
}

type BlacklistRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func NewCustomerEndpoints(repo *repository.GORMRepository) *CustomerEndpoints {
	return &CustomerEndpoints{repo: repo}
}

func (e *CustomerEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", e.ListCustomersHandler)
		r.Post("/", e.CreateCustomerHandler)
		r.Get("/{id}", e.GetCustomerHandler)
		r.Put("/{id}", e.UpdateCustomerHandler)
		r.Delete("/{id}", e.DeleteCustomerHandler)
		r.Post("/{id}/blacklist", e.BlacklistHandler)
		r.Delete("/{id}/blacklist", e.ClearBlacklistHandler)
	})
}

func (e *CustomerEndpoints) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	f := repository.CustomerFilter{
		ListParams:  parseListParams(r),
		CompanyID:   r.URL.Query().Get("company_id"),
		Blacklisted: parseBool(r, "blacklisted"),
	}
	customers, total, err := e.repo.ListCustomers(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "list customers")
		return
	}
	respondList(w, customers, f.ListParams, total)
}

func (e *CustomerEndpoints) load(r *http.Request) (*models.Customer, error) {
	customer, err := e.repo.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, notFound("Customer")
	}
	return customer, nil
}

func (e *CustomerEndpoints) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "get customer")
		return
	}
	respondData(w, http.StatusOK, customer)
}

func (e *CustomerEndpoints) bind(r *http.Request, req *CustomerRequest, c *models.Customer) error {
	c.FullName = strings.TrimSpace(req.FullName)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.NationalID = strings.TrimSpace(req.NationalID)
	c.LicenseNumber = strings.ToUpper(strings.TrimSpace(req.LicenseNumber))
	c.LicenseExpiry = timePtr(req.LicenseExpiry)
	c.DateOfBirth = timePtr(req.DateOfBirth)
	c.Address = req.Address
	c.NationalityID = optionalID(req.NationalityID)
	c.ProfessionID = optionalID(req.ProfessionID)
	c.ClassificationID = optionalID(req.ClassificationID)
	c.LicenseTypeID = optionalID(req.LicenseTypeID)
	c.CompanyID = optionalID(req.CompanyID)
	c.Company = nil

	if c.DateOfBirth != nil && c.LicenseExpiry != nil && c.LicenseExpiry.Before(*c.DateOfBirth) {
		return badRequest("license_expiry must be after date_of_birth")
	}
	if err := requireLookups(r, e.repo, map[string]*string{
		models.KindNationalities:           c.NationalityID,
		models.KindProfessions:             c.ProfessionID,
		models.KindCustomerClassifications: c.ClassificationID,
		models.KindLicenseTypes:            c.LicenseTypeID,
	}); err != nil {
		return err
	}
	if c.CompanyID != nil {
		company, err := e.repo.GetCompany(r.Context(), *c.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return badRequest("Company does not exist")
		}
	}
	return nil
}

func (e *CustomerEndpoints) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create customer")
		return
	}
	customer := &models.Customer{}
	if err := e.bind(r, &req, customer); err != nil {
		handleError(w, r, err, "create customer")
		return
	}
	if err := e.repo.CreateCustomer(r.Context(), customer); err != nil {
		handleError(w, r, err, "create customer")
		return
	}
	respondCreated(w, customer, "Customer created")
}

func (e *CustomerEndpoints) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update customer")
		return
	}
	customer, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "update customer")
		return
	}
	if err := e.bind(r, &req, customer); err != nil {
		handleError(w, r, err, "update customer")
		return
	}
	if err := e.repo.UpdateCustomer(r.Context(), customer); err != nil {
		handleError(w, r, err, "update customer")
		return
	}
	respondData(w, http.StatusOK, customer)
}

func (e *CustomerEndpoints) DeleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "delete customer")
		return
	}
	if err := e.repo.DeleteCustomer(r.Context(), customer.ID); err != nil {
		handleError(w, r, err, "delete customer")
		return
	}
	respondMessage(w, "Customer deleted")
}

func (e *CustomerEndpoints) BlacklistHandler(w http.ResponseWriter, r *http.Request) {
	var req BlacklistRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "blacklist customer")
		return
	}
	customer, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "blacklist customer")
		return
	}
	if err := e.repo.SetCustomerBlacklist(r.Context(), customer.ID, true, req.Reason); err != nil {
		handleError(w, r, err, "blacklist customer")
		return
	}
	customer.Blacklisted = true
	customer.BlacklistReason = req.Reason
	respondData(w, http.StatusOK, customer)
}

func (e *CustomerEndpoints) ClearBlacklistHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "clear customer blacklist")
		return
	}
	if err := e.repo.SetCustomerBlacklist(r.Context(), customer.ID, false, ""); err != nil {
		handleError(w, r, err, "clear customer blacklist")
		return
	}
	customer.Blacklisted = false
	customer.BlacklistReason = ""
	respondData(w, http.StatusOK, customer)
}
