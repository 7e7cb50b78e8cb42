package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// CustomerFilter narrows a customer listing
type CustomerFilter struct {
	ListParams
	CompanyID   string
	Blacklisted *bool
}

var customerReferences = []models.Reference{
	{Table: "contracts", Column: "customer_id"},
	{Table: "finance_records", Column: "customer_id"},
}

func (r *GORMRepository) ListCustomers(ctx context.Context, f CustomerFilter) ([]models.Customer, int64, error) {
	var customers []models.Customer
	query := r.db.WithContext(ctx).Model(&models.Customer{}).
		Scopes(searchColumns(f.Search, "full_name", "phone", "email", "license_number", "national_id"))
	if f.CompanyID != "" {
		query = query.Where("company_id = ?", f.CompanyID)
	}
	if f.Blacklisted != nil {
		query = query.Where("blacklisted = ?", *f.Blacklisted)
	}
	total, err := findPage(query, f.ListParams, "full_name", &customers)
	if err != nil {
		slog.Error("Failed to list customers", "error", err)
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *GORMRepository) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Preload("Company").Where("id = ?", id).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get customer", "error", err, "customer_id", id)
		return nil, err
	}
	return &customer, nil
}

func (r *GORMRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := customerIdentifiersFree(tx, customer); err != nil {
			return err
		}
		return translateError(tx.Omit("Company").Create(customer).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create customer", "error", err)
		}
		return err
	}
	slog.Info("Customer created", "customer_id", customer.ID, "name", customer.FullName)
	return nil
}

func (r *GORMRepository) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := customerIdentifiersFree(tx, customer); err != nil {
			return err
		}
		return translateError(tx.Omit("Company").Save(customer).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to update customer", "error", err, "customer_id", customer.ID)
		}
		return err
	}
	slog.Info("Customer updated", "customer_id", customer.ID)
	return nil
}

// SetCustomerBlacklist flags or clears a customer without touching other columns
func (r *GORMRepository) SetCustomerBlacklist(ctx context.Context, id string, blacklisted bool, reason string) error {
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(map[string]interface{}{
		"blacklisted":      blacklisted,
		"blacklist_reason": reason,
	}).Error; err != nil {
		slog.Error("Failed to update customer blacklist", "error", err, "customer_id", id)
		return err
	}
	slog.Info("Customer blacklist updated", "customer_id", id, "blacklisted", blacklisted)
	return nil
}

func (r *GORMRepository) DeleteCustomer(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, customerReferences...)
		if err != nil {
			return err
		}
		if inUse {
			return inUseErr("Customer")
		}
		return translateError(tx.Where("id = ?", id).Delete(&models.Customer{}).Error)
	})
	if err != nil {
		if !errors.Is(err, ErrInUse) {
			slog.Error("Failed to delete customer", "error", err, "customer_id", id)
		}
		return err
	}
	slog.Info("Customer deleted", "customer_id", id)
	return nil
}

func customerIdentifiersFree(tx *gorm.DB, customer *models.Customer) error {
	if dup, err := taken(tx, "customers", "national_id", customer.NationalID, customer.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Customer", "national ID")
	}
	if dup, err := taken(tx, "customers", "license_number", customer.LicenseNumber, customer.ID); err != nil {
		return err
	} else if dup {
		return duplicateErr("Customer", "license number")
	}
	return nil
}
