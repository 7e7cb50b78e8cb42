package models

// Lookup is the row shape shared by every lookup table. The table is chosen per
// kind at query time, so the struct carries no TableName and no index tags
// (index names would collide across tables); see repository.AutoMigrate.
type Lookup struct {
	Base
	Name        string   `gorm:"size:150;not null" json:"name"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	ParentID    *string  `gorm:"type:uuid" json:"parent_id,omitempty"`
	Amount      *float64 `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
}

// Reference is a column elsewhere in the schema that points at a lookup row
type Reference struct {
	Table  string
	Column string
}

// LookupKind describes one lookup table
type LookupKind struct {
	Slug       string      `json:"slug"`
	Table      string      `json:"-"`
	Label      string      `json:"label"`
	ParentSlug string      `json:"parent,omitempty"` // e.g. vehicle models belong to a make
	HasAmount  bool        `json:"has_amount"`       // add-ons carry a daily price
	References []Reference `json:"-"`
}

const (
	KindVehicleMakes            = "vehicle-makes"
	KindVehicleModels           = "vehicle-models"
	KindVehicleColors           = "vehicle-colors"
	KindVehicleFeatures         = "vehicle-features"
	KindVehicleOwners           = "vehicle-owners"
	KindVehicleStatuses         = "vehicle-statuses"
	KindContractAddOns          = "contract-add-ons"
	KindContractStatuses        = "contract-statuses"
	KindNationalities           = "nationalities"
	KindProfessions             = "professions"
	KindCustomerClassifications = "customer-classifications"
	KindLicenseTypes            = "license-types"
)

var lookupKinds = []LookupKind{
	{
		Slug: KindVehicleMakes, Table: "vehicle_makes", Label: "Vehicle make",
		References: []Reference{{"vehicles", "make_id"}, {"vehicle_models", "parent_id"}},
	},
	{
		Slug: KindVehicleModels, Table: "vehicle_models", Label: "Vehicle model", ParentSlug: KindVehicleMakes,
		References: []Reference{{"vehicles", "model_id"}},
	},
	{
		Slug: KindVehicleColors, Table: "vehicle_colors", Label: "Vehicle color",
		References: []Reference{{"vehicles", "color_id"}},
	},
	{
		Slug: KindVehicleFeatures, Table: "vehicle_features", Label: "Vehicle feature",
		References: []Reference{{"vehicle_feature_links", "lookup_id"}},
	},
	{
		Slug: KindVehicleOwners, Table: "vehicle_owners", Label: "Vehicle owner",
		References: []Reference{{"vehicles", "owner_id"}},
	},
	{
		Slug: KindVehicleStatuses, Table: "vehicle_statuses", Label: "Vehicle status",
		References: []Reference{{"vehicles", "status_id"}},
	},
	{
		Slug: KindContractAddOns, Table: "contract_add_ons", Label: "Contract add-on", HasAmount: true,
		References: []Reference{{"contract_add_on_links", "lookup_id"}},
	},
	{
		Slug: KindContractStatuses, Table: "contract_statuses", Label: "Contract status",
		References: []Reference{{"contracts", "status_label_id"}},
	},
	{
		Slug: KindNationalities, Table: "nationalities", Label: "Nationality",
		References: []Reference{{"customers", "nationality_id"}},
	},
	{
		Slug: KindProfessions, Table: "professions", Label: "Profession",
		References: []Reference{{"customers", "profession_id"}},
	},
	{
		Slug: KindCustomerClassifications, Table: "customer_classifications", Label: "Customer classification",
		References: []Reference{{"customers", "classification_id"}},
	},
	{
		Slug: KindLicenseTypes, Table: "license_types", Label: "License type",
		References: []Reference{{"customers", "license_type_id"}},
	},
}

// LookupKinds returns every registered lookup kind in display order
func LookupKinds() []LookupKind {
	out := make([]LookupKind, len(lookupKinds))
	copy(out, lookupKinds)
	return out
}

// FindLookupKind resolves a kind by its URL slug
func FindLookupKind(slug string) (LookupKind, bool) {
	for _, k := range lookupKinds {
		if k.Slug == slug {
			return k, true
		}
	}
	return LookupKind{}, false
}

// MustLookupKind is FindLookupKind for slugs known at compile time
func MustLookupKind(slug string) LookupKind {
	k, ok := FindLookupKind(slug)
	if !ok {
		panic("unknown lookup kind: " + slug)
	}
	return k
}
