package models

const (
	AvailabilityAvailable   = "available"
	AvailabilityRented      = "rented"
	AvailabilityMaintenance = "maintenance"
)

// Vehicle is a unit of the rental fleet
type Vehicle struct {
	Base
	PlateNumber  string  `gorm:"size:32;not null;uniqueIndex" json:"plate_number"`
	VIN          string  `gorm:"column:vin;size:64;not null;uniqueIndex" json:"vin"`
	MakeID       *string `gorm:"type:uuid;index" json:"make_id,omitempty"`
	ModelID      *string `gorm:"type:uuid;index" json:"model_id,omitempty"`
	ColorID      *string `gorm:"type:uuid;index" json:"color_id,omitempty"`
	OwnerID      *string `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	StatusID     *string `gorm:"type:uuid;index" json:"status_id,omitempty"`
	Year         int     `json:"year"`
	Mileage      int     `gorm:"not null;default:0" json:"mileage"`
	DailyRate    float64 `gorm:"type:decimal(12,2);not null;default:0" json:"daily_rate"`
	WeeklyRate   float64 `gorm:"type:decimal(12,2);not null;default:0" json:"weekly_rate"`
	MonthlyRate  float64 `gorm:"type:decimal(12,2);not null;default:0" json:"monthly_rate"`
	Availability string  `gorm:"size:20;not null;default:'available';index" json:"availability"`
	Notes        string  `gorm:"type:text" json:"notes,omitempty"`

	// Filled from vehicle_feature_links, never written through gorm associations
	Features []Lookup `gorm:"-" json:"features,omitempty"`
}

// VehicleFeatureLink joins vehicles to the vehicle_features lookup
type VehicleFeatureLink struct {
	VehicleID string `gorm:"type:uuid;primaryKey"`
	LookupID  string `gorm:"type:uuid;primaryKey;index"`
}
