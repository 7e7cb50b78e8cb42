package models

import "time"

const (
	FinancePayment = "payment"
	FinanceDeposit = "deposit"
	FinanceRefund  = "refund"
	FinanceCharge  = "charge"
	FinanceExpense = "expense"
)

// FinanceRecord is one money movement, optionally tied to a contract, customer or company
type FinanceRecord struct {
	Base
	ContractID  *string   `gorm:"type:uuid;index" json:"contract_id,omitempty"`
	CustomerID  *string   `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CompanyID   *string   `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Type        string    `gorm:"size:20;not null;index;check:type IN ('payment','deposit','refund','charge','expense')" json:"type"`
	Method      string    `gorm:"size:20;not null" json:"method"`
	Amount      float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reference   string    `gorm:"size:100" json:"reference,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	RecordedAt  time.Time `gorm:"not null;index" json:"recorded_at"`
	RecordedBy  string    `gorm:"size:255" json:"recorded_by,omitempty"`
}

// FinanceSummary totals records per type over a period
type FinanceSummary struct {
	Payments float64 `json:"payments"`
	Deposits float64 `json:"deposits"`
	Refunds  float64 `json:"refunds"`
	Charges  float64 `json:"charges"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}
