package services

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

// LookupEndpoints serves CRUD for every lookup table under /lookups/{kind}
type LookupEndpoints struct {
	repo *repository.GORMRepository
}

type LookupRequest struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Description string   `json:"description"`
	ParentID    string   `json:"parent_id" validate:"omitempty,uuid"`
	Amount      *float64 `json:"amount" validate:"omitempty,gte=0"`
}

func NewLookupEndpoints(repo *repository.GORMRepository) *LookupEndpoints {
	return &LookupEndpoints{repo: repo}
}

func (e *LookupEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/lookups", func(r chi.Router) {
		r.Get("/", e.ListKindsHandler)
		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", e.ListLookupsHandler)
			r.Post("/", e.CreateLookupHandler)
			r.Get("/{id}", e.GetLookupHandler)
			r.Put("/{id}", e.UpdateLookupHandler)
			r.Delete("/{id}", e.DeleteLookupHandler)
		})
	})
}

func (e *LookupEndpoints) kind(r *http.Request) (models.LookupKind, error) {
	kind, ok := models.FindLookupKind(chi.URLParam(r, "kind"))
	if !ok {
		return kind, notFound("Lookup table")
	}
	return kind, nil
}

func (e *LookupEndpoints) ListKindsHandler(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, models.LookupKinds())
}

func (e *LookupEndpoints) ListLookupsHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := e.kind(r)
	if err != nil {
		handleError(w, r, err, "list lookups")
		return
	}
	f := repository.LookupFilter{ListParams: parseListParams(r), ParentID: r.URL.Query().Get("parent_id")}
	items, total, err := e.repo.ListLookups(r.Context(), kind, f)
	if err != nil {
		handleError(w, r, err, "list "+strings.ToLower(kind.Label)+"s")
		return
	}
	respondList(w, items, f.ListParams, total)
}

func (e *LookupEndpoints) GetLookupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := e.kind(r)
	if err != nil {
		handleError(w, r, err, "get lookup")
		return
	}
	item, err := e.repo.GetLookup(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get "+strings.ToLower(kind.Label))
		return
	}
	if item == nil {
		handleError(w, r, notFound(kind.Label), "get lookup")
		return
	}
	respondData(w, http.StatusOK, item)
}

// bind copies the request onto item after checking the parent row and amount rules
func (e *LookupEndpoints) bind(r *http.Request, kind models.LookupKind, req *LookupRequest, item *models.Lookup) error {
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	if item.Name == "" {
		return badRequest("name is required")
	}

	item.ParentID = nil
	if kind.ParentSlug != "" {
		parent := models.MustLookupKind(kind.ParentSlug)
		if req.ParentID == "" {
			return badRequest("parent_id is required")
		}
		ok, err := e.repo.LookupExists(r.Context(), parent, req.ParentID)
		if err != nil {
			return err
		}
		if !ok {
			return badRequest(parent.Label + " does not exist")
		}
		item.ParentID = optionalID(req.ParentID)
	}

	item.Amount = nil
	if kind.HasAmount {
		if req.Amount == nil {
			return badRequest("amount is required")
		}
		item.Amount = req.Amount
	}
	return nil
}

func (e *LookupEndpoints) CreateLookupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := e.kind(r)
	if err != nil {
		handleError(w, r, err, "create lookup")
		return
	}
	action := "create " + strings.ToLower(kind.Label)

	var req LookupRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, action)
		return
	}
	item := &models.Lookup{}
	if err := e.bind(r, kind, &req, item); err != nil {
		handleError(w, r, err, action)
		return
	}
	if err := e.repo.CreateLookup(r.Context(), kind, item); err != nil {
		handleError(w, r, err, action)
		return
	}
	respondCreated(w, item, kind.Label+" created")
}

func (e *LookupEndpoints) UpdateLookupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := e.kind(r)
	if err != nil {
		handleError(w, r, err, "update lookup")
		return
	}
	action := "update " + strings.ToLower(kind.Label)

	var req LookupRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, action)
		return
	}
	item, err := e.repo.GetLookup(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, action)
		return
	}
	if item == nil {
		handleError(w, r, notFound(kind.Label), action)
		return
	}
	if err := e.bind(r, kind, &req, item); err != nil {
		handleError(w, r, err, action)
		return
	}
	if err := e.repo.UpdateLookup(r.Context(), kind, item); err != nil {
		handleError(w, r, err, action)
		return
	}
	respondData(w, http.StatusOK, item)
}

func (e *LookupEndpoints) DeleteLookupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := e.kind(r)
	if err != nil {
		handleError(w, r, err, "delete lookup")
		return
	}
	action := "delete " + strings.ToLower(kind.Label)

	id := chi.URLParam(r, "id")
	exists, err := e.repo.LookupExists(r.Context(), kind, id)
	if err != nil {
		handleError(w, r, err, action)
		return
	}
	if !exists {
		handleError(w, r, notFound(kind.Label), action)
		return
	}
	if err := e.repo.DeleteLookup(r.Context(), kind, id); err != nil {
		handleError(w, r, err, action)
		return
	}
	respondMessage(w, kind.Label+" deleted")
}

// requireLookups checks that every set id points at a row of its lookup table
func requireLookups(r *http.Request, repo *repository.GORMRepository, ids map[string]*string) error {
	for slug, id := range ids {
		if id == nil {
			continue
		}
		kind := models.MustLookupKind(slug)
		ok, err := repo.LookupExists(r.Context(), kind, *id)
		if err != nil {
			return err
		}
		if !ok {
			return badRequest(kind.Label + " does not exist")
		}
	}
	return nil
}
