package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// PolicyFilter narrows an insurance policy listing
type PolicyFilter struct {
	ListParams
	VehicleID string
}

var insuranceOptionReferences = []models.Reference{
	{Table: "contracts", Column: "insurance_option_id"},
}

func (r *GORMRepository) ListInsuranceOptions(ctx context.Context, p ListParams) ([]models.InsuranceOption, int64, error) {
	var options []models.InsuranceOption
	query := r.db.WithContext(ctx).Model(&models.InsuranceOption{}).Scopes(searchColumns(p.Search, "name", "description"))
	total, err := findPage(query, p, "name", &options)
	if err != nil {
		slog.Error("Failed to list insurance options", "error", err)
		return nil, 0, err
	}
	return options, total, nil
}

func (r *GORMRepository) GetInsuranceOption(ctx context.Context, id string) (*models.InsuranceOption, error) {
	var option models.InsuranceOption
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get insurance option", "error", err, "option_id", id)
		return nil, err
	}
	return &option, nil
}

func (r *GORMRepository) CreateInsuranceOption(ctx context.Context, option *models.InsuranceOption) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dup, err := taken(tx, "insurance_options", "name", option.Name, ""); err != nil {
			return err
		} else if dup {
			return duplicateErr("Insurance option", "name")
		}
		return translateError(tx.Create(option).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create insurance option", "error", err)
		}
		return err
	}
	slog.Info("Insurance option created", "option_id", option.ID, "name", option.Name)
	return nil
}

func (r *GORMRepository) UpdateInsuranceOption(ctx context.Context, option *models.InsuranceOption) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dup, err := taken(tx, "insurance_options", "name", option.Name, option.ID); err != nil {
			return err
		} else if dup {
			return duplicateErr("Insurance option", "name")
		}
		return translateError(tx.Save(option).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to update insurance option", "error", err, "option_id", option.ID)
		}
		return err
	}
	slog.Info("Insurance option updated", "option_id", option.ID)
	return nil
}

func (r *GORMRepository) DeleteInsuranceOption(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, insuranceOptionReferences...)
		if err != nil {
			return err
		}
		if inUse {
			return inUseErr("Insurance option")
		}
		return translateError(tx.Where("id = ?", id).Delete(&models.InsuranceOption{}).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrInUse) {
			slog.Error("Failed to delete insurance option", "error", err, "option_id", id)
		}
		return err
	}
	slog.Info("Insurance option deleted", "option_id", id)
	return nil
}

func (r *GORMRepository) ListInsurancePolicies(ctx context.Context, f PolicyFilter) ([]models.InsurancePolicy, int64, error) {
	var policies []models.InsurancePolicy
	query := r.db.WithContext(ctx).Model(&models.InsurancePolicy{}).Scopes(searchColumns(f.Search, "policy_number", "provider"))
	if f.VehicleID != "" {
		query = query.Where("vehicle_id = ?", f.VehicleID)
	}
	total, err := findPage(query, f.ListParams, "end_date DESC", &policies)
	if err != nil {
		slog.Error("Failed to list insurance policies", "error", err)
		return nil, 0, err
	}
	return policies, total, nil
}

func (r *GORMRepository) GetInsurancePolicy(ctx context.Context, id string) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	if err := r.db.WithContext(ctx).Preload("Vehicle").Where("id = ?", id).First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get insurance policy", "error", err, "policy_id", id)
		return nil, err
	}
	return &policy, nil
}

func (r *GORMRepository) CreateInsurancePolicy(ctx context.Context, policy *models.InsurancePolicy) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dup, err := taken(tx, "insurance_policies", "policy_number", policy.PolicyNumber, ""); err != nil {
			return err
		} else if dup {
			return duplicateErr("Insurance policy", "policy number")
		}
		return translateError(tx.Omit("Vehicle").Create(policy).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create insurance policy", "error", err)
		}
		return err
	}
	slog.Info("Insurance policy created", "policy_id", policy.ID, "vehicle_id", policy.VehicleID)
	return nil
}

func (r *GORMRepository) UpdateInsurancePolicy(ctx context.Context, policy *models.InsurancePolicy) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dup, err := taken(tx, "insurance_policies", "policy_number", policy.PolicyNumber, policy.ID); err != nil {
			return err
		} else if dup {
			return duplicateErr("Insurance policy", "policy number")
		}
		return translateError(tx.Omit("Vehicle").Save(policy).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to update insurance policy", "error", err, "policy_id", policy.ID)
		}
		return err
	}
	slog.Info("Insurance policy updated", "policy_id", policy.ID)
	return nil
}

func (r *GORMRepository) DeleteInsurancePolicy(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.InsurancePolicy{}).Error; err != nil {
		slog.Error("Failed to delete insurance policy", "error", err, "policy_id", id)
		return err
	}
	slog.Info("Insurance policy deleted", "policy_id", id)
	return nil
}
