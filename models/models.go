package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// Database schema overview:
// 1. users, refresh_tokens, permanent_tokens - staff accounts and cookie sessions
// 2. one table per lookup kind (vehicle_makes, nationalities, ...) - see lookup.go
// 3. vehicles, vehicle_feature_links - fleet
// 4. customers, companies - renters and the companies billed for them
// 5. insurance_options, insurance_policies - rental cover and fleet policies
// 6. contracts, contract_add_on_links, contract_events - rentals and their status history
// 7. finance_records - payments, deposits, refunds, charges and expenses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the id and timestamps shared by every domain table
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
