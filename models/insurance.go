package models

import "time"

// InsuranceOption is a cover a renter can add to a contract, priced per day
type InsuranceOption struct {
	Base
	Name        string  `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	DailyRate   float64 `gorm:"type:decimal(12,2);not null;default:0" json:"daily_rate"`
	Deductible  float64 `gorm:"type:decimal(12,2);not null;default:0" json:"deductible"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`
}

// InsurancePolicy is the fleet insurance held on one vehicle
type InsurancePolicy struct {
	Base
	PolicyNumber string    `gorm:"size:64;not null;uniqueIndex" json:"policy_number"`
	Provider     string    `gorm:"size:255;not null" json:"provider"`
	VehicleID    string    `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	StartDate    time.Time `gorm:"not null" json:"start_date"`
	EndDate      time.Time `gorm:"not null" json:"end_date"`
	Premium      float64   `gorm:"type:decimal(12,2);not null;default:0" json:"premium"`
	Coverage     string    `gorm:"type:text" json:"coverage,omitempty"`

	// Relationships
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
}
