package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

type FinanceEndpoints struct {
	repo *repository.GORMRepository
}

type FinanceRecordRequest struct {
	ContractID  string  `json:"contract_id" validate:"omitempty,uuid"`
	CustomerID  string  `json:"customer_id" validate:"omitempty,uuid"`
	CompanyID   string  `json:"company_id" validate:"omitempty,uuid"`
	Type        string  `json:"type" validate:"required,oneof=payment deposit refund charge expense"`
	Method      string  `json:"method" validate:"required,oneof=cash card transfer cheque"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Reference   string  `json:"reference" validate:"max=100"`
	Description string  `json:"description"`
	RecordedAt  *Date   `json:"recorded_at"`
}

func NewFinanceEndpoints(repo *repository.GORMRepository) *FinanceEndpoints {
	return &FinanceEndpoints{repo: repo}
}

func (e *FinanceEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/finance", func(r chi.Router) {
		r.Get("/", e.ListRecordsHandler)
		r.Post("/", e.CreateRecordHandler)
		r.Get("/summary", e.SummaryHandler)
		r.Get("/{id}", e.GetRecordHandler)
		r.Put("/{id}", e.UpdateRecordHandler)
		r.Delete("/{id}", e.DeleteRecordHandler)
	})
}

// parseFinanceFilter reads the filters shared by the listing and the summary.
// "to" is inclusive of the whole day.
func parseFinanceFilter(r *http.Request) (repository.FinanceFilter, error) {
	q := r.URL.Query()
	f := repository.FinanceFilter{
		ListParams: parseListParams(r),
		Type:       q.Get("type"),
		ContractID: q.Get("contract_id"),
		CustomerID: q.Get("customer_id"),
		CompanyID:  q.Get("company_id"),
	}
	var err error
	if f.From, err = parseDateParam(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseDateParam(r, "to"); err != nil {
		return f, err
	}
	if f.To != nil {
		next := f.To.AddDate(0, 0, 1)
		f.To = &next
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, badRequest("from must not be after to")
	}
	return f, nil
}

func (e *FinanceEndpoints) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFinanceFilter(r)
	if err != nil {
		handleError(w, r, err, "list finance records")
		return
	}
	records, total, err := e.repo.ListFinanceRecords(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "list finance records")
		return
	}
	respondList(w, records, f.ListParams, total)
}

func (e *FinanceEndpoints) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFinanceFilter(r)
	if err != nil {
		handleError(w, r, err, "summarize finance records")
		return
	}
	summary, err := e.repo.FinanceSummary(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "summarize finance records")
		return
	}
	respondData(w, http.StatusOK, summary)
}

func (e *FinanceEndpoints) load(r *http.Request) (*models.FinanceRecord, error) {
	record, err := e.repo.GetFinanceRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, notFound("Finance record")
	}
	return record, nil
}

func (e *FinanceEndpoints) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	record, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "get finance record")
		return
	}
	respondData(w, http.StatusOK, record)
}

// bind resolves the parties of a record; a contract fills in its customer and company
func (e *FinanceEndpoints) bind(r *http.Request, req *FinanceRecordRequest, rec *models.FinanceRecord) error {
	rec.ContractID = optionalID(req.ContractID)
	rec.CustomerID = optionalID(req.CustomerID)
	rec.CompanyID = optionalID(req.CompanyID)
	rec.Type = req.Type
	rec.Method = req.Method
	rec.Amount = req.Amount
	rec.Reference = strings.TrimSpace(req.Reference)
	rec.Description = req.Description
	if req.RecordedAt != nil && !req.RecordedAt.IsZero() {
		rec.RecordedAt = req.RecordedAt.Time
	} else if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	if rec.ContractID != nil {
		contract, err := e.repo.GetContract(r.Context(), *rec.ContractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return badRequest("Contract does not exist")
		}
		if rec.CustomerID == nil {
			rec.CustomerID = optionalID(contract.CustomerID)
		} else if *rec.CustomerID != contract.CustomerID {
			return badRequest("customer_id does not match the contract")
		}
		if rec.CompanyID == nil {
			rec.CompanyID = contract.CompanyID
		}
	}
	if rec.CustomerID != nil {
		customer, err := e.repo.GetCustomer(r.Context(), *rec.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return badRequest("Customer does not exist")
		}
	}
	if rec.CompanyID != nil {
		company, err := e.repo.GetCompany(r.Context(), *rec.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return badRequest("Company does not exist")
		}
	}
	if rec.Type != models.FinanceExpense && rec.ContractID == nil && rec.CustomerID == nil && rec.CompanyID == nil {
		return badRequest("contract_id, customer_id or company_id is required")
	}
	return nil
}

func (e *FinanceEndpoints) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var req FinanceRecordRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create finance record")
		return
	}
	record := &models.FinanceRecord{}
	if err := e.bind(r, &req, record); err != nil {
		handleError(w, r, err, "create finance record")
		return
	}
	if user, ok := UserFromContext(r.Context()); ok {
		record.RecordedBy = actorName(user)
	}
	if err := e.repo.CreateFinanceRecord(r.Context(), record); err != nil {
		handleError(w, r, err, "create finance record")
		return
	}
	respondCreated(w, record, "Finance record created")
}

func (e *FinanceEndpoints) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var req FinanceRecordRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update finance record")
		return
	}
	record, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "update finance record")
		return
	}
	if err := e.bind(r, &req, record); err != nil {
		handleError(w, r, err, "update finance record")
		return
	}
	if err := e.repo.UpdateFinanceRecord(r.Context(), record); err != nil {
		handleError(w, r, err, "update finance record")
		return
	}
	respondData(w, http.StatusOK, record)
}

func (e *FinanceEndpoints) DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	record, err := e.load(r)
	if err != nil {
		handleError(w, r, err, "delete finance record")
		return
	}
	if err := e.repo.DeleteFinanceRecord(r.Context(), record.ID); err != nil {
		handleError(w, r, err, "delete finance record")
		return
	}
	respondMessage(w, "Finance record deleted")
}
