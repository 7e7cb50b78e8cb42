package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

var companyReferences = []models.Reference{
	{Table: "customers", Column: "company_id"},
	{Table: "contracts", Column: "company_id"},
	{Table: "finance_records", Column: "company_id"},
}

func (r *GORMRepository) ListCompanies(ctx context.Context, p ListParams) ([]models.Company, int64, error) {
	var companies []models.Company
	query := r.db.WithContext(ctx).Model(&models.Company{}).
		Scopes(searchColumns(p.Search, "name", "registration_number", "tax_number"))
	total, err := findPage(query, p, "name", &companies)
	if err != nil {
		slog.Error("Failed to list companies", "error", err)
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *GORMRepository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get company", "error", err, "company_id", id)
		return nil, err
	}
	return &company, nil
}

func (r *GORMRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := companyIdentifiersFree(tx, company); err != nil {
			return err
		}
		return translateError(tx.Create(company).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create company", "error", err)
		}
		return err
	}
	slog.Info("Company created", "company_id", company.ID, "name", company.Name)
	return nil
}

func (r *GORMRepository) UpdateCompany(ctx context.Context, company *models.Company) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := companyIdentifiersFree(tx, company); err != nil {
			return err
		}
		return translateError(tx.Save(company).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to update company", "error", err, "company_id", company.ID)
		}
		return err
	}
	slog.Info("Company updated", "company_id", company.ID)
	return nil
}

func (r *GORMRepository) DeleteCompany(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, companyReferences...)
		if err != nil {
			return err
		}
		if inUse {
			return inUseErr("Company")
		}
		return translateError(tx.Where("id = ?", id).Delete(&models.Company{}).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrInUse) {
			slog.Error("Failed to delete company", "error", err, "company_id", id)
		}
		return err
	}
	slog.Info("Company deleted", "company_id", id)
	return nil
}

func companyIdentifiersFree(tx *gorm.DB, company *models.Company) error {
	if dup, err := taken(tx, "companies", "name", company.Name, company.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Company", "name")
	}
	if dup, err := taken(tx, "companies", "registration_number", company.RegistrationNumber, company.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Company", "registration number")
	}
	return nil
}
