package models

import "time"

const (
	ContractOpen      = "open"
	ContractOnHold    = "on_hold"
	ContractClosed    = "closed"
	ContractCancelled = "cancelled"
)

// contractTransitions lists the statuses reachable from each status.
// Closed and cancelled contracts are terminal.
var contractTransitions = map[string][]string{
	ContractOpen:   {ContractOnHold, ContractClosed, ContractCancelled},
	ContractOnHold: {ContractOpen, ContractClosed, ContractCancelled},
}

// CanTransition reports whether a contract may move from one status to another
func CanTransition(from, to string) bool {
	for _, s := range contractTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Contract is a rental agreement between the agency and a customer for one vehicle
type Contract struct {
	Base
	ContractNumber    string     `gorm:"size:32;not null;uniqueIndex" json:"contract_number"`
	CustomerID        string     `gorm:"type:uuid;not null;index" json:"customer_id"`
	VehicleID         string     `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	CompanyID         *string    `gorm:"type:uuid;index" json:"company_id,omitempty"`
	InsuranceOptionID *string    `gorm:"type:uuid;index" json:"insurance_option_id,omitempty"`
	StatusLabelID     *string    `gorm:"type:uuid;index" json:"status_label_id,omitempty"`
	StartDate         time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate           time.Time  `gorm:"not null;index" json:"end_date"`
	DurationDays      int        `gorm:"not null" json:"duration_days"`
	DailyRate         float64    `gorm:"type:decimal(12,2);not null" json:"daily_rate"`
	AddOnDailyTotal   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"add_on_daily_total"`
	InsuranceDaily    float64    `gorm:"type:decimal(12,2);not null;default:0" json:"insurance_daily_rate"`
	TotalAmount       float64    `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Deposit           float64    `gorm:"type:decimal(12,2);not null;default:0" json:"deposit"`
	MileageOut        int        `gorm:"not null;default:0" json:"mileage_out"`
	MileageIn         *int       `json:"mileage_in,omitempty"`
	Status            string     `gorm:"size:20;not null;default:'open';index" json:"status"`
	StatusReason      string     `gorm:"type:text" json:"status_reason,omitempty"`
	StatusComment     string     `gorm:"type:text" json:"status_comment,omitempty"`
	StatusChangedBy   string     `gorm:"size:255" json:"status_changed_by,omitempty"`
	StatusChangedAt   *time.Time `json:"status_changed_at,omitempty"`
	Overdue           bool       `gorm:"default:false;index" json:"overdue"`
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`

	// Relationships
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Vehicle  *Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Company  *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	// Filled from contract_add_on_links
	AddOns []ContractAddOnLink `gorm:"foreignKey:ContractID" json:"add_ons,omitempty"`
}

// ContractAddOnLink attaches an add-on to a contract, keeping the daily price at signing time
type ContractAddOnLink struct {
	ContractID string  `gorm:"type:uuid;primaryKey" json:"-"`
	LookupID   string  `gorm:"type:uuid;primaryKey;index" json:"add_on_id"`
	Name       string  `gorm:"size:150" json:"name"`
	DailyPrice float64 `gorm:"type:decimal(12,2);not null;default:0" json:"daily_price"`
}

// ContractEvent is one entry of a contract's status history
type ContractEvent struct {
	Base
	ContractID string    `gorm:"type:uuid;not null;index" json:"contract_id"`
	FromStatus string    `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus   string    `gorm:"size:20;not null" json:"to_status"`
	Reason     string    `gorm:"type:text" json:"reason,omitempty"`
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	Actor      string    `gorm:"size:255" json:"actor,omitempty"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
}

// ContractBalance is what is still owed on a contract
type ContractBalance struct {
	ContractID  string  `json:"contract_id"`
	TotalAmount float64 `json:"total_amount"`
	Charges     float64 `json:"charges"`
	Payments    float64 `json:"payments"`
	Deposits    float64 `json:"deposits"`
	Refunds     float64 `json:"refunds"`
	Due         float64 `json:"due"`
}
