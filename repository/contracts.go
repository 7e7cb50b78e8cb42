package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// ErrVehicleUnavailable is returned when the vehicle was taken by another contract
var ErrVehicleUnavailable = errors.New("vehicle is not available")

// ContractFilter narrows a contract listing
type ContractFilter struct {
	ListParams
	Status     string
	CustomerID string
	VehicleID  string
	CompanyID  string
	Overdue    *bool
}

// ContractTransition is one status change applied with a compare-and-set on the old status
type ContractTransition struct {
	ContractID string
	VehicleID  string
	From       string
	To         string
	Reason     string
	Comment    string
	Actor      string
	MileageIn  *int
	At         time.Time
}

var contractReferences = []models.Reference{
	{Table: "finance_records", Column: "contract_id"},
}

func (r *GORMRepository) ListContracts(ctx context.Context, f ContractFilter) ([]models.Contract, int64, error) {
	var contracts []models.Contract
	query := r.db.WithContext(ctx).Model(&models.Contract{}).Scopes(searchColumns(f.Search, "contract_number"))
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if f.VehicleID != "" {
		query = query.Where("vehicle_id = ?", f.VehicleID)
	}
	if f.CompanyID != "" {
		query = query.Where("company_id = ?", f.CompanyID)
	}
	if f.Overdue != nil {
		query = query.Where("overdue = ?", *f.Overdue)
	}
	total, err := findPage(query, f.ListParams, "start_date DESC, contract_number DESC", &contracts)
	if err != nil {
		slog.Error("Failed to list contracts", "error", err)
		return nil, 0, err
	}
	return contracts, total, nil
}

// GetContract loads a contract with its parties and add-ons
func (r *GORMRepository) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Vehicle").
		Preload("Company").
		Preload("AddOns").
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get contract", "error", err, "contract_id", id)
		return nil, err
	}
	return &contract, nil
}

// CreateContract reserves the vehicle, inserts the contract with its add-ons and
// records the opening event in one transaction
func (r *GORMRepository) CreateContract(ctx context.Context, contract *models.Contract, actor string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Vehicle{}).
			Where("id = ? AND availability = ?", contract.VehicleID, models.AvailabilityAvailable).
			Update("availability", models.AvailabilityRented)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVehicleUnavailable
		}

		if err := tx.Omit("Customer", "Vehicle", "Company").Create(contract).Error; err != nil {
			if errors.Is(translateError(err), ErrDuplicate) {
				return duplicateErr("Contract", "contract number")
			}
			return err
		}

		return tx.Create(&models.ContractEvent{
			ContractID: contract.ID,
			ToStatus:   contract.Status,
			Actor:      actor,
			OccurredAt: contract.CreatedAt,
		}).Error
	})
	if err != nil {
		if !errors.Is(err, ErrVehicleUnavailable) && !errors.Is(err, ErrDuplicate) {
			slog.Error("Failed to create contract", "error", err)
		}
		return err
	}
	slog.Info("Contract created", "contract_id", contract.ID, "contract_number", contract.ContractNumber, "vehicle_id", contract.VehicleID)
	return nil
}

// UpdateContractTerms rewrites pricing, dates and add-ons of a contract that is still open
func (r *GORMRepository) UpdateContractTerms(ctx context.Context, contract *models.Contract) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Contract{}).
			Where("id = ? AND status = ?", contract.ID, models.ContractOpen).
			Updates(map[string]interface{}{
				"company_id":          contract.CompanyID,
				"insurance_option_id": contract.InsuranceOptionID,
				"status_label_id":     contract.StatusLabelID,
				"end_date":            contract.EndDate,
				"duration_days":       contract.DurationDays,
				"daily_rate":          contract.DailyRate,
				"add_on_daily_total":  contract.AddOnDailyTotal,
				"insurance_daily":     contract.InsuranceDaily,
				"total_amount":        contract.TotalAmount,
				"deposit":             contract.Deposit,
				"notes":               contract.Notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Where("contract_id = ?", contract.ID).Delete(&models.ContractAddOnLink{}).Error; err != nil {
			return err
		}
		if len(contract.AddOns) == 0 {
			return nil
		}
		for i := range contract.AddOns {
			contract.AddOns[i].ContractID = contract.ID
		}
		return tx.Create(&contract.AddOns).Error
	})
	if err != nil {
		if !errors.Is(err, ErrStatusConflict) {
			slog.Error("Failed to update contract", "error", err, "contract_id", contract.ID)
		}
		return err
	}
	slog.Info("Contract updated", "contract_id", contract.ID, "total_amount", contract.TotalAmount)
	return nil
}

// TransitionContract applies a status change only if the contract is still in t.From
func (r *GORMRepository) TransitionContract(ctx context.Context, t ContractTransition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":            t.To,
			"status_reason":     t.Reason,
			"status_comment":    t.Comment,
			"status_changed_by": t.Actor,
			"status_changed_at": t.At,
		}
		if t.MileageIn != nil {
			updates["mileage_in"] = *t.MileageIn
		}
		terminal := t.To == models.ContractClosed || t.To == models.ContractCancelled
		if terminal {
			updates["overdue"] = false
		}

		res := tx.Model(&models.Contract{}).Where("id = ? AND status = ?", t.ContractID, t.From).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Create(&models.ContractEvent{
			ContractID: t.ContractID,
			FromStatus: t.From,
			ToStatus:   t.To,
			Reason:     t.Reason,
			Comment:    t.Comment,
			Actor:      t.Actor,
			OccurredAt: t.At,
		}).Error; err != nil {
			return err
		}

		if !terminal {
			return nil
		}
		vehicleUpdates := map[string]interface{}{"availability": models.AvailabilityAvailable}
		if t.MileageIn != nil {
			vehicleUpdates["mileage"] = *t.MileageIn
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", t.VehicleID).Updates(vehicleUpdates).Error
	})
	if err != nil {
		if !errors.Is(err, ErrStatusConflict) {
			slog.Error("Failed to transition contract", "error", err, "contract_id", t.ContractID, "to", t.To)
		}
		return err
	}
	slog.Info("Contract status changed", "contract_id", t.ContractID, "from", t.From, "to", t.To, "actor", t.Actor)
	return nil
}

func (r *GORMRepository) ListContractEvents(ctx context.Context, contractID string) ([]models.ContractEvent, error) {
	var events []models.ContractEvent
	if err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("occurred_at, created_at").Find(&events).Error; err != nil {
		slog.Error("Failed to list contract events", "error", err, "contract_id", contractID)
		return nil, err
	}
	return events, nil
}

// DeleteContract removes a cancelled contract that has no finance records
func (r *GORMRepository) DeleteContract(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inUse, err := referenced(tx, id, contractReferences...)
		if err != nil {
			return err
		}
		if inUse {
			return inUseErr("Contract")
		}
		if err := tx.Where("contract_id = ?", id).Delete(&models.ContractAddOnLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contract_id = ?", id).Delete(&models.ContractEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", id, models.ContractCancelled).Delete(&models.Contract{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInUse) && !errors.Is(err, ErrStatusConflict) {
			slog.Error("Failed to delete contract", "error", err, "contract_id", id)
		}
		return err
	}
	slog.Info("Contract deleted", "contract_id", id)
	return nil
}

type typeTotal struct {
	Type  string
	Total float64
}

// ContractBalance sums the finance records of a contract against its total amount
func (r *GORMRepository) ContractBalance(ctx context.Context, contract *models.Contract) (*models.ContractBalance, error) {
	var rows []typeTotal
	err := r.db.WithContext(ctx).Model(&models.FinanceRecord{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("contract_id = ?", contract.ID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		slog.Error("Failed to compute contract balance", "error", err, "contract_id", contract.ID)
		return nil, err
	}

	balance := &models.ContractBalance{ContractID: contract.ID, TotalAmount: contract.TotalAmount}
	for _, row := range rows {
		switch row.Type {
		case models.FinanceCharge:
			balance.Charges = row.Total
		case models.FinancePayment:
			balance.Payments = row.Total
		case models.FinanceDeposit:
			balance.Deposits = row.Total
		case models.FinanceRefund:
			balance.Refunds = row.Total
		}
	}
	balance.Due = roundCents(balance.TotalAmount + balance.Charges - balance.Payments - balance.Deposits + balance.Refunds)
	return balance, nil
}

// FlagOverdueContracts marks open contracts whose end date is before now and clears the
// flag on contracts that are no longer overdue. It returns the newly flagged contracts.
func (r *GORMRepository) FlagOverdueContracts(ctx context.Context, now time.Time) ([]models.Contract, error) {
	var flagged []models.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND overdue = ? AND end_date < ?", models.ContractOpen, false, now).
			Find(&flagged).Error; err != nil {
			return err
		}
		if len(flagged) > 0 {
			ids := make([]string, len(flagged))
			for i, c := range flagged {
				ids[i] = c.ID
			}
			if err := tx.Model(&models.Contract{}).Where("id IN ?", ids).Update("overdue", true).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Contract{}).
			Where("overdue = ? AND (status <> ? OR end_date >= ?)", true, models.ContractOpen, now).
			Update("overdue", false).Error
	})
	if err != nil {
		slog.Error("Failed to flag overdue contracts", "error", err)
		return nil, fmt.Errorf("failed to flag overdue contracts: %w", err)
	}
	return flagged, nil
}

// CountOverdueContracts counts contracts currently flagged overdue
func (r *GORMRepository) CountOverdueContracts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Where("overdue = ?", true).Count(&n).Error
	return n, err
}
