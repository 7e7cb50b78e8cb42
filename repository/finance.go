package repository

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

// FinanceFilter narrows a finance listing
type FinanceFilter struct {
	ListParams
	Type       string
	ContractID string
	CustomerID string
	CompanyID  string
	From       *time.Time
	To         *time.Time
}

func (f FinanceFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.ContractID != "" {
		db = db.Where("contract_id = ?", f.ContractID)
	}
	if f.CustomerID != "" {
		db = db.Where("customer_id = ?", f.CustomerID)
	}
	if f.CompanyID != "" {
		db = db.Where("company_id = ?", f.CompanyID)
	}
	if f.From != nil {
		db = db.Where("recorded_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("recorded_at < ?", *f.To)
	}
	return db
}

func (r *GORMRepository) ListFinanceRecords(ctx context.Context, f FinanceFilter) ([]models.FinanceRecord, int64, error) {
	var records []models.FinanceRecord
	query := r.db.WithContext(ctx).Model(&models.FinanceRecord{}).
		Scopes(f.apply, searchColumns(f.Search, "reference", "description"))
	total, err := findPage(query, f.ListParams, "recorded_at DESC", &records)
	if err != nil {
		slog.Error("Failed to list finance records", "error", err)
		return nil, 0, err
	}
	return records, total, nil
}

func (r *GORMRepository) GetFinanceRecord(ctx context.Context, id string) (*models.FinanceRecord, error) {
	var record models.FinanceRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get finance record", "error", err, "record_id", id)
		return nil, err
	}
	return &record, nil
}

func (r *GORMRepository) CreateFinanceRecord(ctx context.Context, record *models.FinanceRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		slog.Error("Failed to create finance record", "error", err)
		return translateError(err)
	}
	slog.Info("Finance record created", "record_id", record.ID, "type", record.Type, "amount", record.Amount)
	return nil
}

func (r *GORMRepository) UpdateFinanceRecord(ctx context.Context, record *models.FinanceRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		slog.Error("Failed to update finance record", "error", err, "record_id", record.ID)
		return translateError(err)
	}
	slog.Info("Finance record updated", "record_id", record.ID)
	return nil
}

func (r *GORMRepository) DeleteFinanceRecord(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FinanceRecord{}).Error; err != nil {
		slog.Error("Failed to delete finance record", "error", err, "record_id", id)
		return err
	}
	slog.Info("Finance record deleted", "record_id", id)
	return nil
}

// FinanceSummary totals records per type; Net is money in minus money out
func (r *GORMRepository) FinanceSummary(ctx context.Context, f FinanceFilter) (*models.FinanceSummary, error) {
	var rows []typeTotal
	err := r.db.WithContext(ctx).Model(&models.FinanceRecord{}).
		Scopes(f.apply).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		slog.Error("Failed to summarize finance records", "error", err)
		return nil, err
	}

	summary := &models.FinanceSummary{}
	for _, row := range rows {
		switch row.Type {
		case models.FinancePayment:
			summary.Payments = row.Total
		case models.FinanceDeposit:
			summary.Deposits = row.Total
		case models.FinanceRefund:
			summary.Refunds = row.Total
		case models.FinanceCharge:
			summary.Charges = row.Total
		case models.FinanceExpense:
			summary.Expenses = row.Total
		}
	}
	summary.Net = roundCents(summary.Payments + summary.Deposits - summary.Refunds - summary.Expenses)
	return summary, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
