package models

import "time"

// Customer is a person who rents vehicles, optionally on behalf of a company
type Customer struct {
	Base
	FullName         string     `gorm:"size:255;not null;index" json:"full_name"`
	Email            string     `gorm:"size:255" json:"email,omitempty"`
	Phone            string     `gorm:"size:50;not null" json:"phone"`
	NationalID       string     `gorm:"size:64;not null;uniqueIndex" json:"national_id"`
	LicenseNumber    string     `gorm:"size:64;not null;uniqueIndex" json:"license_number"`
	LicenseExpiry    *time.Time `json:"license_expiry,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          string     `gorm:"type:text" json:"address,omitempty"`
	NationalityID    *string    `gorm:"type:uuid;index" json:"nationality_id,omitempty"`
	ProfessionID     *string    `gorm:"type:uuid;index" json:"profession_id,omitempty"`
	ClassificationID *string    `gorm:"type:uuid;index" json:"classification_id,omitempty"`
	LicenseTypeID    *string    `gorm:"type:uuid;index" json:"license_type_id,omitempty"`
	CompanyID        *string    `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Blacklisted      bool       `gorm:"default:false;index" json:"blacklisted"`
	BlacklistReason  string     `gorm:"type:text" json:"blacklist_reason,omitempty"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

// LicenseValidOn reports whether the driving license is still valid on the given day.
// Customers without a recorded expiry are treated as valid.
func (c *Customer) LicenseValidOn(day time.Time) bool {
	if c.LicenseExpiry == nil {
		return true
	}
	return !c.LicenseExpiry.Before(truncateDay(day))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
