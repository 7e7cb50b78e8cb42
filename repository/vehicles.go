package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// VehicleFilter narrows a vehicle listing
type VehicleFilter struct {
	ListParams
	Availability string
	MakeID       string
	ModelID      string
}

var vehicleReferences = []models.Reference{
	{Table: "contracts", Column: "vehicle_id"},
	{Table: "insurance_policies", Column: "vehicle_id"},
}

func (r *GORMRepository) ListVehicles(ctx context.Context, f VehicleFilter) ([]models.Vehicle, int64, error) {
	var vehicles []models.Vehicle
	query := r.db.WithContext(ctx).Model(&models.Vehicle{}).Scopes(searchColumns(f.Search, "plate_number", "vin"))
	if f.Availability != "" {
		query = query.Where("availability = ?", f.Availability)
	}
	if f.MakeID != "" {
		query = query.Where("make_id = ?", f.MakeID)
	}
	if f.ModelID != "" {
		query = query.Where("model_id = ?", f.ModelID)
	}
	total, err := findPage(query, f.ListParams, "plate_number", &vehicles)
	if err != nil {
		slog.Error("Failed to list vehicles", "error", err)
		return nil, 0, err
	}
	return vehicles, total, nil
}

// GetVehicle loads a vehicle with its features
func (r *GORMRepository) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ?", id).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get vehicle", "error", err, "vehicle_id", id)
		return nil, err
	}
	features, err := vehicleFeatures(db, id)
	if err != nil {
		slog.Error("Failed to get vehicle features", "error", err, "vehicle_id", id)
		return nil, err
	}
	vehicle.Features = features
	return &vehicle, nil
}

func (r *GORMRepository) CreateVehicle(ctx context.Context, vehicle *models.Vehicle, featureIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := vehicleIdentifiersFree(tx, vehicle); err != nil {
			return err
		}
		if err := tx.Create(vehicle).Error; err != nil {
			return translateError(err)
		}
		return replaceVehicleFeatures(tx, vehicle.ID, featureIDs)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create vehicle", "error", err)
		}
		return err
	}
	slog.Info("Vehicle created", "vehicle_id", vehicle.ID, "plate_number", vehicle.PlateNumber)
	return nil
}

func (r *GORMRepository) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := vehicleIdentifiersFree(tx, vehicle); err != nil {
			return err
		}
		return translateError(tx.Omit("availability", "created_at").Save(vehicle).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to update vehicle", "error", err, "vehicle_id", vehicle.ID)
		}
		return err
	}
	slog.Info("Vehicle updated", "vehicle_id", vehicle.ID)
	return nil
}

// SetVehicleFeatures replaces the feature set of a vehicle
func (r *GORMRepository) SetVehicleFeatures(ctx context.Context, vehicleID string, featureIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceVehicleFeatures(tx, vehicleID, featureIDs)
	})
	if err != nil {
		slog.Error("Failed to set vehicle features", "error", err, "vehicle_id", vehicleID)
		return err
	}
	return nil
}

// DeleteVehicle refuses vehicles that contracts or insurance policies still reference
func (r *GORMRepository) DeleteVehicle(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, vehicleReferences...)
		if err != nil {
			return err
		}
		if inUse {
			return inUseErr("Vehicle")
		}
		if err := tx.Where("vehicle_id = ?", id).Delete(&models.VehicleFeatureLink{}).Error; err != nil {
			return err
		}
		return translateError(tx.Where("id = ?", id).Delete(&models.Vehicle{}).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrInUse) {
			slog.Error("Failed to delete vehicle", "error", err, "vehicle_id", id)
		}
		return err
	}
	slog.Info("Vehicle deleted", "vehicle_id", id)
	return nil
}

// SetVehicleAvailability moves a vehicle between availability states, failing with
// ErrStatusConflict when the vehicle is no longer in from
func (r *GORMRepository) SetVehicleAvailability(ctx context.Context, vehicleID, from, to string) error {
	res := r.db.WithContext(ctx).Model(&models.Vehicle{}).
		Where("id = ? AND availability = ?", vehicleID, from).
		Update("availability", to)
	if res.Error != nil {
		slog.Error("Failed to set vehicle availability", "error", res.Error, "vehicle_id", vehicleID)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	slog.Info("Vehicle availability changed", "vehicle_id", vehicleID, "from", from, "to", to)
	return nil
}

func vehicleIdentifiersFree(tx *gorm.DB, vehicle *models.Vehicle) error {
	if dup, err := taken(tx, "vehicles", "plate_number", vehicle.PlateNumber, vehicle.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Vehicle", "plate number")
	}
	if dup, err := taken(tx, "vehicles", "vin", vehicle.VIN, vehicle.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Vehicle", "VIN")
	}
	return nil
}

func replaceVehicleFeatures(tx *gorm.DB, vehicleID string, featureIDs []string) error {
	if err := tx.Where("vehicle_id = ?", vehicleID).Delete(&models.VehicleFeatureLink{}).Error; err != nil {
		return err
	}
	if len(featureIDs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(featureIDs))
	links := make([]models.VehicleFeatureLink, 0, len(featureIDs))
	for _, id := range featureIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		links = append(links, models.VehicleFeatureLink{VehicleID: vehicleID, LookupID: id})
	}
	return tx.Create(&links).Error
}

func vehicleFeatures(tx *gorm.DB, vehicleID string) ([]models.Lookup, error) {
	var features []models.Lookup
	table := models.MustLookupKind(models.KindVehicleFeatures).Table
	err := tx.Table(table).
		Select(table+".*").
		Joins("JOIN vehicle_feature_links ON vehicle_feature_links.lookup_id = "+table+".id").
		Where("vehicle_feature_links.vehicle_id = ?", vehicleID).
		Order(table + ".name").
		Find(&features).Error
	return features, err
}
