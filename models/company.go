package models

// Company is a corporate account that customers and contracts can be billed to
type Company struct {
	Base
	Name               string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	RegistrationNumber string  `gorm:"size:64;not null;uniqueIndex" json:"registration_number"`
	TaxNumber          string  `gorm:"size:64" json:"tax_number,omitempty"`
	Email              string  `gorm:"size:255" json:"email,omitempty"`
	Phone              string  `gorm:"size:50" json:"phone,omitempty"`
	Address            string  `gorm:"type:text" json:"address,omitempty"`
	ContactPerson      string  `gorm:"size:255" json:"contact_person,omitempty"`
	CreditLimit        float64 `gorm:"type:decimal(12,2);not null;default:0" json:"credit_limit"`
}
