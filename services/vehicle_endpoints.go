package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

type VehicleEndpoints struct {
	repo   *repository.GORMRepository
	events EventPublisher
}

type VehicleRequest struct {
	PlateNumber  string   `json:"plate_number" validate:"required,max=32"`
	VIN          string   `json:"vin" validate:"required,max=64"`
	MakeID       string   `json:"make_id" validate:"omitempty,uuid"`
	ModelID      string   `json:"model_id" validate:"omitempty,uuid"`
	ColorID      string   `json:"color_id" validate:"omitempty,uuid"`
	OwnerID      string   `json:"owner_id" validate:"omitempty,uuid"`
	StatusID     string   `json:"status_id" validate:"omitempty,uuid"`
	Year         int      `json:"year" validate:"omitempty,min=1900,max=2100"`
	Mileage      int      `json:"mileage" validate:"gte=0"`
	DailyRate    float64  `json:"daily_rate" validate:"gte=0"`
	WeeklyRate   float64  `json:"weekly_rate" validate:"gte=0"`
	MonthlyRate  float64  `json:"monthly_rate" validate:"gte=0"`
	Availability string   `json:"availability" validate:"omitempty,oneof=available maintenance"`
	Notes        string   `json:"notes"`
	FeatureIDs   []string `json:"feature_ids" validate:"omitempty,dive,uuid"`
}

type VehicleFeaturesRequest struct {
	FeatureIDs []string `json:"feature_ids" validate:"dive,uuid"`
}

func NewVehicleEndpoints(repo *repository.GORMRepository, events EventPublisher) *VehicleEndpoints {
	return &VehicleEndpoints{repo: repo, events: publisherOrNoop(events)}
}

func (e *VehicleEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", e.ListVehiclesHandler)
		r.Post("/", e.CreateVehicleHandler)
		r.Get("/{id}", e.GetVehicleHandler)
		r.Put("/{id}", e.UpdateVehicleHandler)
		r.Put("/{id}/features", e.SetFeaturesHandler)
		r.Delete("/{id}", e.DeleteVehicleHandler)
	})
}

func (e *VehicleEndpoints) ListVehiclesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.VehicleFilter{
		ListParams:   parseListParams(r),
		Availability: q.Get("availability"),
		MakeID:       q.Get("make_id"),
		ModelID:      q.Get("model_id"),
	}
	vehicles, total, err := e.repo.ListVehicles(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "list vehicles")
		return
	}
	respondList(w, vehicles, f.ListParams, total)
}

func (e *VehicleEndpoints) GetVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, err := e.repo.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get vehicle")
		return
	}
	if vehicle == nil {
		handleError(w, r, notFound("Vehicle"), "get vehicle")
		return
	}
	respondData(w, http.StatusOK, vehicle)
}

func (e *VehicleEndpoints) bind(r *http.Request, req *VehicleRequest, v *models.Vehicle) error {
	v.PlateNumber = strings.ToUpper(strings.TrimSpace(req.PlateNumber))
	v.VIN = strings.ToUpper(strings.TrimSpace(req.VIN))
	v.MakeID = optionalID(req.MakeID)
	v.ModelID = optionalID(req.ModelID)
	v.ColorID = optionalID(req.ColorID)
	v.OwnerID = optionalID(req.OwnerID)
	v.StatusID = optionalID(req.StatusID)
	v.Year = req.Year
	v.Mileage = req.Mileage
	v.DailyRate = req.DailyRate
	v.WeeklyRate = req.WeeklyRate
	v.MonthlyRate = req.MonthlyRate
	v.Notes = req.Notes

	if err := requireLookups(r, e.repo, map[string]*string{
		models.KindVehicleMakes:    v.MakeID,
		models.KindVehicleModels:   v.ModelID,
		models.KindVehicleColors:   v.ColorID,
		models.KindVehicleOwners:   v.OwnerID,
		models.KindVehicleStatuses: v.StatusID,
	}); err != nil {
		return err
	}
	if v.ModelID != nil && v.MakeID != nil {
		if err := e.requireModelOfMake(r.Context(), *v.ModelID, *v.MakeID); err != nil {
			return err
		}
	}
	return e.requireFeatures(r, req.FeatureIDs)
}

func (e *VehicleEndpoints) requireModelOfMake(ctx context.Context, modelID, makeID string) error {
	model, err := e.repo.GetLookup(ctx, models.MustLookupKind(models.KindVehicleModels), modelID)
	if err != nil {
		return err
	}
	if model == nil {
		return badRequest("Vehicle model does not exist")
	}
	if model.ParentID == nil || *model.ParentID != makeID {
		return badRequest("Vehicle model does not belong to the selected make")
	}
	return nil
}

func (e *VehicleEndpoints) requireFeatures(r *http.Request, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := e.repo.GetLookupsByIDs(r.Context(), models.MustLookupKind(models.KindVehicleFeatures), ids)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(found))
	for _, f := range found {
		known[f.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return badRequest("Vehicle feature does not exist")
		}
	}
	return nil
}

func (e *VehicleEndpoints) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "create vehicle")
		return
	}
	vehicle := &models.Vehicle{Availability: models.AvailabilityAvailable}
	if req.Availability != "" {
		vehicle.Availability = req.Availability
	}
	if err := e.bind(r, &req, vehicle); err != nil {
		handleError(w, r, err, "create vehicle")
		return
	}
	if err := e.repo.CreateVehicle(r.Context(), vehicle, req.FeatureIDs); err != nil {
		handleError(w, r, err, "create vehicle")
		return
	}

	created, err := e.repo.GetVehicle(r.Context(), vehicle.ID)
	if err != nil || created == nil {
		created = vehicle
	}
	e.events.Publish(newEvent(EventVehicleCreated, "vehicle", created.ID, created))
	respondCreated(w, created, "Vehicle created")
}

func (e *VehicleEndpoints) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update vehicle")
		return
	}
	vehicle, err := e.repo.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "update vehicle")
		return
	}
	if vehicle == nil {
		handleError(w, r, notFound("Vehicle"), "update vehicle")
		return
	}
	changeAvailability := req.Availability != "" && req.Availability != vehicle.Availability
	if changeAvailability && vehicle.Availability == models.AvailabilityRented {
		handleError(w, r, badRequest("Vehicle is rented; close or cancel its contract first"), "update vehicle")
		return
	}
	if err := e.bind(r, &req, vehicle); err != nil {
		handleError(w, r, err, "update vehicle")
		return
	}
	features := vehicle.Features
	vehicle.Features = nil
	if err := e.repo.UpdateVehicle(r.Context(), vehicle); err != nil {
		handleError(w, r, err, "update vehicle")
		return
	}
	if changeAvailability {
		if err := e.repo.SetVehicleAvailability(r.Context(), vehicle.ID, vehicle.Availability, req.Availability); err != nil {
			handleError(w, r, err, "update vehicle")
			return
		}
		vehicle.Availability = req.Availability
	}
	if req.FeatureIDs != nil {
		if err := e.repo.SetVehicleFeatures(r.Context(), vehicle.ID, req.FeatureIDs); err != nil {
			handleError(w, r, err, "update vehicle")
			return
		}
		if features, err = e.repo.GetLookupsByIDs(r.Context(), models.MustLookupKind(models.KindVehicleFeatures), req.FeatureIDs); err != nil {
			handleError(w, r, err, "update vehicle")
			return
		}
	}
	vehicle.Features = features
	e.events.Publish(newEvent(EventVehicleUpdated, "vehicle", vehicle.ID, vehicle))
	respondData(w, http.StatusOK, vehicle)
}

func (e *VehicleEndpoints) SetFeaturesHandler(w http.ResponseWriter, r *http.Request) {
	var req VehicleFeaturesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, "update vehicle features")
		return
	}
	vehicle, err := e.repo.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "update vehicle features")
		return
	}
	if vehicle == nil {
		handleError(w, r, notFound("Vehicle"), "update vehicle features")
		return
	}
	if err := e.requireFeatures(r, req.FeatureIDs); err != nil {
		handleError(w, r, err, "update vehicle features")
		return
	}
	if err := e.repo.SetVehicleFeatures(r.Context(), vehicle.ID, req.FeatureIDs); err != nil {
		handleError(w, r, err, "update vehicle features")
		return
	}
	updated, err := e.repo.GetVehicle(r.Context(), vehicle.ID)
	if err != nil {
		handleError(w, r, err, "update vehicle features")
		return
	}
	respondData(w, http.StatusOK, updated)
}

func (e *VehicleEndpoints) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, err := e.repo.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "delete vehicle")
		return
	}
	if vehicle == nil {
		handleError(w, r, notFound("Vehicle"), "delete vehicle")
		return
	}
	if err := e.repo.DeleteVehicle(r.Context(), vehicle.ID); err != nil {
		handleError(w, r, err, "delete vehicle")
		return
	}
	e.events.Publish(newEvent(EventVehicleDeleted, "vehicle", vehicle.ID, nil))
	respondMessage(w, "Vehicle deleted")
}
