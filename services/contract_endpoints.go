package services

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

type ContractEndpoints struct {
	repo     *repository.GORMRepository
	contract *ContractService
}

func NewContractEndpoints(repo *repository.GORMRepository, contract *ContractService) *ContractEndpoints {
	return &ContractEndpoints{repo: repo, contract: contract}
}

func (e *ContractEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", e.ListContractsHandler)
		r.Post("/", e.CreateContractHandler)
		r.Post("/quote", e.QuoteHandler)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", e.GetContractHandler)
			r.Put("/", e.UpdateContractHandler)
			r.Delete("/", e.DeleteContractHandler)
			r.Post("/hold", e.transitionHandler(models.ContractOnHold, "hold contract"))
			r.Post("/resume", e.transitionHandler(models.ContractOpen, "resume contract"))
			r.Post("/close", e.transitionHandler(models.ContractClosed, "close contract"))
			r.Post("/cancel", e.transitionHandler(models.ContractCancelled, "cancel contract"))
			r.Get("/events", e.EventsHandler)
			r.Get("/balance", e.BalanceHandler)
			r.Get("/print", e.PrintHandler)
		})
	})
}

func (e *ContractEndpoints) ListContractsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ContractFilter{
		ListParams: parseListParams(r),
		Status:     q.Get("status"),
		CustomerID: q.Get("customer_id"),
		VehicleID:  q.Get("vehicle_id"),
		CompanyID:  q.Get("company_id"),
		Overdue:    parseBool(r, "overdue"),
	}
	contracts, total, err := e.repo.ListContracts(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "list contracts")
		return
	}
	respondList(w, contracts, f.ListParams, total)
}

func (e *ContractEndpoints) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req ContractTerms
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "quote contract")
		return
	}
	priced, err := e.contract.Price(r.Context(), req, nil)
	if err != nil {
		handleError(w, r, err, "quote contract")
		return
	}
	respondData(w, http.StatusOK, priced)
}

func (e *ContractEndpoints) CreateContractHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create contract")
		return
	}
	user, _ := UserFromContext(r.Context())
	contract, err := e.contract.Create(r.Context(), req, user)
	if err != nil {
		handleError(w, r, err, "create contract")
		return
	}
	respondCreated(w, contract, "Contract created")
}

func (e *ContractEndpoints) GetContractHandler(w http.ResponseWriter, r *http.Request) {
	contract, err := e.contract.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get contract")
		return
	}
	respondData(w, http.StatusOK, contract)
}

func (e *ContractEndpoints) UpdateContractHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateContractRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update contract")
		return
	}
	contract, err := e.contract.UpdateTerms(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, r, err, "update contract")
		return
	}
	respondData(w, http.StatusOK, contract)
}

func (e *ContractEndpoints) DeleteContractHandler(w http.ResponseWriter, r *http.Request) {
	if err := e.contract.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err, "delete contract")
		return
	}
	respondMessage(w, "Contract deleted")
}

func (e *ContractEndpoints) transitionHandler(to, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransitionRequest
		if err := decodeOptional(r, &req); err != nil {
			handleError(w, r, err, action)
			return
		}
		user, _ := UserFromContext(r.Context())
		contract, err := e.contract.Transition(r.Context(), chi.URLParam(r, "id"), to, req, user)
		if err != nil {
			handleError(w, r, err, action)
			return
		}
		respondData(w, http.StatusOK, contract)
	}
}

func (e *ContractEndpoints) EventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := e.contract.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "list contract events")
		return
	}
	respondData(w, http.StatusOK, events)
}

func (e *ContractEndpoints) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := e.contract.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get contract balance")
		return
	}
	respondData(w, http.StatusOK, balance)
}

// PrintHandler renders the contract as a standalone HTML page for the browser to print
func (e *ContractEndpoints) PrintHandler(w http.ResponseWriter, r *http.Request) {
	contract, err := e.contract.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "print contract")
		return
	}
	user, _ := UserFromContext(r.Context())
	var buf bytes.Buffer
	if err := renderContract(&buf, contract, actorName(user), e.contract.now()); err != nil {
		handleError(w, r, err, "print contract")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
