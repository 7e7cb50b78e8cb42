package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/rentdesk/metrics"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

// ContractTerms are the priced parts of a contract shared by quote, create and update
type ContractTerms struct {
	VehicleID         string   `json:"vehicle_id" validate:"omitempty,uuid"`
	StartDate         Date     `json:"start_date"`
	DurationDays      int      `json:"duration_days" validate:"gte=0"`
	Fees              float64  `json:"fees" validate:"gte=0"`
	DailyRate         *float64 `json:"daily_rate" validate:"omitempty,gte=0"`
	AddOnIDs          []string `json:"add_on_ids" validate:"omitempty,dive,uuid"`
	InsuranceOptionID string   `json:"insurance_option_id" validate:"omitempty,uuid"`
}

type CreateContractRequest struct {
	ContractTerms
	CustomerID    string  `json:"customer_id" validate:"required,uuid"`
	CompanyID     string  `json:"company_id" validate:"omitempty,uuid"`
	StatusLabelID string  `json:"status_label_id" validate:"omitempty,uuid"`
	Deposit       float64 `json:"deposit" validate:"gte=0"`
	Notes         string  `json:"notes"`
}

type UpdateContractRequest struct {
	DurationDays      int      `json:"duration_days" validate:"gte=0"`
	Fees              float64  `json:"fees" validate:"gte=0"`
	DailyRate         *float64 `json:"daily_rate" validate:"omitempty,gte=0"`
	AddOnIDs          []string `json:"add_on_ids" validate:"omitempty,dive,uuid"`
	InsuranceOptionID string   `json:"insurance_option_id" validate:"omitempty,uuid"`
	CompanyID         string   `json:"company_id" validate:"omitempty,uuid"`
	StatusLabelID     string   `json:"status_label_id" validate:"omitempty,uuid"`
	Deposit           float64  `json:"deposit" validate:"gte=0"`
	Notes             string   `json:"notes"`
}

type TransitionRequest struct {
	Reason    string `json:"reason" validate:"max=500"`
	Comment   string `json:"comment"`
	MileageIn *int   `json:"mileage_in" validate:"omitempty,gte=0"`
}

// PricedTerms is a quote together with the add-on rows it was priced from
type PricedTerms struct {
	Quote
	AddOns            []models.ContractAddOnLink `json:"add_ons"`
	InsuranceOptionID *string                    `json:"insurance_option_id,omitempty"`
}

// ContractService holds the contract rules: pricing, party checks and the status machine
type ContractService struct {
	repo   *repository.GORMRepository
	events EventPublisher
	now    func() time.Time
}

func NewContractService(repo *repository.GORMRepository, events EventPublisher) *ContractService {
	return &ContractService{repo: repo, events: publisherOrNoop(events), now: time.Now}
}

// Price resolves add-on and insurance prices and computes the quote. A missing daily
// rate falls back to the vehicle's rate. currentInsuranceID lets an existing contract
// keep an option that has since been deactivated.
func (s *ContractService) Price(ctx context.Context, terms ContractTerms, currentInsuranceID *string) (*PricedTerms, error) {
	dailyRate := 0.0
	switch {
	case terms.DailyRate != nil:
		dailyRate = *terms.DailyRate
	case terms.VehicleID != "":
		vehicle, err := s.repo.GetVehicle(ctx, terms.VehicleID)
		if err != nil {
			return nil, err
		}
		if vehicle == nil {
			return nil, badRequest("Vehicle does not exist")
		}
		dailyRate = vehicle.DailyRate
	default:
		return nil, badRequest("daily_rate or vehicle_id is required")
	}

	addOns, addOnDaily, err := s.resolveAddOns(ctx, terms.AddOnIDs)
	if err != nil {
		return nil, err
	}

	insuranceID := optionalID(terms.InsuranceOptionID)
	insuranceDaily := 0.0
	if insuranceID != nil {
		option, err := s.repo.GetInsuranceOption(ctx, *insuranceID)
		if err != nil {
			return nil, err
		}
		if option == nil {
			return nil, badRequest("Insurance option does not exist")
		}
		keeping := currentInsuranceID != nil && *currentInsuranceID == option.ID
		if !option.IsActive && !keeping {
			return nil, badRequest("Insurance option is not active")
		}
		insuranceDaily = option.DailyRate
	}

	quote, err := ComputeQuote(QuoteInput{
		StartDate:      terms.StartDate.Time,
		DurationDays:   terms.DurationDays,
		Fees:           terms.Fees,
		DailyRate:      dailyRate,
		AddOnDaily:     addOnDaily,
		InsuranceDaily: insuranceDaily,
	})
	if err != nil {
		return nil, err
	}
	return &PricedTerms{Quote: quote, AddOns: addOns, InsuranceOptionID: insuranceID}, nil
}

func (s *ContractService) resolveAddOns(ctx context.Context, ids []string) ([]models.ContractAddOnLink, float64, error) {
	links := []models.ContractAddOnLink{}
	if len(ids) == 0 {
		return links, 0, nil
	}
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	rows, err := s.repo.GetLookupsByIDs(ctx, models.MustLookupKind(models.KindContractAddOns), unique)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) != len(unique) {
		return nil, 0, badRequest("Contract add-on does not exist")
	}

	var cents int64
	for _, row := range rows {
		price := 0.0
		if row.Amount != nil {
			price = *row.Amount
		}
		cents += toCents(price)
		links = append(links, models.ContractAddOnLink{LookupID: row.ID, Name: row.Name, DailyPrice: price})
	}
	return links, fromCents(cents), nil
}

// Create checks the customer and vehicle, prices the terms and opens the contract
func (s *ContractService) Create(ctx context.Context, req CreateContractRequest, actor *models.User) (*models.Contract, error) {
	if req.VehicleID == "" {
		return nil, badRequest("vehicle_id is required")
	}
	if req.StartDate.IsZero() {
		return nil, badRequest("start_date is required")
	}

	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, badRequest("Customer does not exist")
	}
	if customer.Blacklisted {
		return nil, badRequest("Customer is blacklisted")
	}
	if !customer.LicenseValidOn(req.StartDate.Time) {
		return nil, badRequest("Customer's driving license has expired")
	}

	vehicle, err := s.repo.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, badRequest("Vehicle does not exist")
	}
	if vehicle.Availability != models.AvailabilityAvailable {
		return nil, badRequest("Vehicle is not available")
	}

	companyID := optionalID(req.CompanyID)
	if companyID == nil {
		companyID = customer.CompanyID
	}
	if err := s.requireParties(ctx, companyID, optionalID(req.StatusLabelID)); err != nil {
		return nil, err
	}

	priced, err := s.Price(ctx, req.ContractTerms, nil)
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{
		CustomerID:        customer.ID,
		VehicleID:         vehicle.ID,
		CompanyID:         companyID,
		InsuranceOptionID: priced.InsuranceOptionID,
		StatusLabelID:     optionalID(req.StatusLabelID),
		Deposit:           req.Deposit,
		MileageOut:        vehicle.Mileage,
		Status:            models.ContractOpen,
		Notes:             req.Notes,
		AddOns:            priced.AddOns,
	}
	applyQuote(contract, priced.Quote)

	// Contract numbers carry a random suffix; retry the rare collision
	for attempt := 0; ; attempt++ {
		contract.ID = ""
		contract.ContractNumber = s.nextContractNumber()
		err = s.repo.CreateContract(ctx, contract, actorName(actor))
		if err == nil || !errors.Is(err, repository.ErrDuplicate) || attempt == 2 {
			break
		}
		slog.Warn("Contract number collision, retrying", "contract_number", contract.ContractNumber)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(models.ContractOpen)
	created, err := s.repo.GetContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(newEvent(EventContractCreated, "contract", created.ID, created))
	s.events.Publish(newEvent(EventVehicleUpdated, "vehicle", vehicle.ID, map[string]string{"availability": models.AvailabilityRented}))
	return created, nil
}

// UpdateTerms re-prices a contract that is still open
func (s *ContractService) UpdateTerms(ctx context.Context, id string, req UpdateContractRequest) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractOpen {
		return nil, badRequest(fmt.Sprintf("Only open contracts can be edited, this one is %s", statusLabel(contract.Status)))
	}

	companyID := optionalID(req.CompanyID)
	statusLabelID := optionalID(req.StatusLabelID)
	if err := s.requireParties(ctx, companyID, statusLabelID); err != nil {
		return nil, err
	}

	terms := ContractTerms{
		StartDate:         Date{contract.StartDate},
		DurationDays:      req.DurationDays,
		Fees:              req.Fees,
		DailyRate:         req.DailyRate,
		AddOnIDs:          req.AddOnIDs,
		InsuranceOptionID: req.InsuranceOptionID,
	}
	if terms.DailyRate == nil {
		rate := contract.DailyRate
		terms.DailyRate = &rate
	}
	priced, err := s.Price(ctx, terms, contract.InsuranceOptionID)
	if err != nil {
		return nil, err
	}

	contract.CompanyID = companyID
	contract.StatusLabelID = statusLabelID
	contract.InsuranceOptionID = priced.InsuranceOptionID
	contract.Deposit = req.Deposit
	contract.Notes = req.Notes
	contract.AddOns = priced.AddOns
	applyQuote(contract, priced.Quote)

	if err := s.repo.UpdateContractTerms(ctx, contract); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(newEvent(EventContractUpdated, "contract", updated.ID, updated))
	return updated, nil
}

// Transition moves a contract to a new status. The write is conditional on the status
// read here, so a concurrent change makes this call fail instead of overwriting it.
func (s *ContractService) Transition(ctx context.Context, id, to string, req TransitionRequest, actor *models.User) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(contract.Status, to) {
		return nil, badRequest(fmt.Sprintf("Cannot move a contract from %s to %s", statusLabel(contract.Status), statusLabel(to)))
	}

	reason := strings.TrimSpace(req.Reason)
	if (to == models.ContractOnHold || to == models.ContractCancelled) && reason == "" {
		return nil, badRequest("reason is required")
	}
	if req.MileageIn != nil {
		if to != models.ContractClosed {
			return nil, badRequest("mileage_in is only accepted when closing a contract")
		}
		if *req.MileageIn < contract.MileageOut {
			return nil, badRequest(fmt.Sprintf("mileage_in must be at least the mileage out (%d)", contract.MileageOut))
		}
	}

	err = s.repo.TransitionContract(ctx, repository.ContractTransition{
		ContractID: contract.ID,
		VehicleID:  contract.VehicleID,
		From:       contract.Status,
		To:         to,
		Reason:     reason,
		Comment:    strings.TrimSpace(req.Comment),
		Actor:      actorName(actor),
		MileageIn:  req.MileageIn,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(to)

	updated, err := s.repo.GetContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(newEvent(EventContractStatusChanged, "contract", updated.ID, map[string]string{
		"from": contract.Status,
		"to":   to,
	}))
	if to == models.ContractClosed || to == models.ContractCancelled {
		s.events.Publish(newEvent(EventVehicleUpdated, "vehicle", updated.VehicleID, map[string]string{"availability": models.AvailabilityAvailable}))
	}
	return updated, nil
}

func (s *ContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	return s.load(ctx, id)
}

func (s *ContractService) Events(ctx context.Context, id string) ([]models.ContractEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListContractEvents(ctx, id)
}

func (s *ContractService) Balance(ctx context.Context, id string) (*models.ContractBalance, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ContractBalance(ctx, contract)
}

// Delete removes a cancelled contract without finance records
func (s *ContractService) Delete(ctx context.Context, id string) error {
	contract, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if contract.Status != models.ContractCancelled {
		return badRequest("Only cancelled contracts can be deleted")
	}
	if err := s.repo.DeleteContract(ctx, id); err != nil {
		return err
	}
	s.events.Publish(newEvent(EventContractDeleted, "contract", id, nil))
	return nil
}

func (s *ContractService) load(ctx context.Context, id string) (*models.Contract, error) {
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, notFound("Contract")
	}
	return contract, nil
}

func (s *ContractService) requireParties(ctx context.Context, companyID, statusLabelID *string) error {
	if companyID != nil {
		company, err := s.repo.GetCompany(ctx, *companyID)
		if err != nil {
			return err
		}
		if company == nil {
			return badRequest("Company does not exist")
		}
	}
	if statusLabelID != nil {
		ok, err := s.repo.LookupExists(ctx, models.MustLookupKind(models.KindContractStatuses), *statusLabelID)
		if err != nil {
			return err
		}
		if !ok {
			return badRequest("Contract status does not exist")
		}
	}
	return nil
}

// nextContractNumber formats CT-YYYYMMDD-XXXXXX
func (s *ContractService) nextContractNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("CT-%s-%s", s.now().Format("20060102"), suffix)
}

func applyQuote(c *models.Contract, q Quote) {
	c.StartDate = q.StartDate.Time
	c.EndDate = q.EndDate.Time
	c.DurationDays = q.DurationDays
	c.DailyRate = q.DailyRate
	c.AddOnDailyTotal = q.AddOnDailyTotal
	c.InsuranceDaily = q.InsuranceDaily
	c.TotalAmount = q.TotalAmount
}

func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
