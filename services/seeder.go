package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo          *repository.GORMRepository
	adminEmail    string
	adminPassword string
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository, adminEmail, adminPassword string) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo, adminEmail: adminEmail, adminPassword: adminPassword}
}

type seedLookup struct {
	Name     string
	Amount   *float64
	Children []string
}

func price(v float64) *float64 {
	return &v
}

var defaultLookups = map[string][]seedLookup{
	models.KindVehicleMakes: {
		{Name: "Toyota", Children: []string{"Corolla", "Camry", "Land Cruiser"}},
		{Name: "Nissan", Children: []string{"Sunny", "Patrol"}},
		{Name: "Hyundai", Children: []string{"Accent", "Elantra", "Tucson"}},
	},
	models.KindVehicleColors:   {{Name: "White"}, {Name: "Black"}, {Name: "Silver"}, {Name: "Red"}},
	models.KindVehicleFeatures: {{Name: "GPS"}, {Name: "Bluetooth"}, {Name: "Reversing camera"}, {Name: "Sunroof"}},
	models.KindVehicleStatuses: {{Name: "In service"}, {Name: "Awaiting repair"}},
	models.KindContractAddOns: {
		{Name: "Child seat", Amount: price(5)},
		{Name: "Additional driver", Amount: price(10)},
		{Name: "GPS unit", Amount: price(7.5)},
	},
	models.KindContractStatuses:        {{Name: "Awaiting payment"}, {Name: "Under review"}},
	models.KindCustomerClassifications: {{Name: "Regular"}, {Name: "VIP"}, {Name: "Corporate"}},
	models.KindLicenseTypes:            {{Name: "Local"}, {Name: "International"}},
}

var defaultInsuranceOptions = []models.InsuranceOption{
	{Name: "Basic cover", Description: "Third-party liability", DailyRate: 0, Deductible: 1500, IsActive: true},
	{Name: "Collision damage waiver", Description: "Reduces the deductible on own damage", DailyRate: 12, Deductible: 500, IsActive: true},
	{Name: "Full cover", Description: "Zero deductible", DailyRate: 25, Deductible: 0, IsActive: true},
}

// SeedDatabase seeds the admin account and reference data (idempotent)
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}

	for _, kind := range models.LookupKinds() {
		for _, item := range defaultLookups[kind.Slug] {
			parent, err := s.ensureLookup(ctx, kind, item.Name, nil, item.Amount)
			if err != nil {
				return err
			}
			if len(item.Children) == 0 {
				continue
			}
			childKind := models.MustLookupKind(models.KindVehicleModels)
			for _, child := range item.Children {
				if _, err := s.ensureLookup(ctx, childKind, child, &parent.ID, nil); err != nil {
					return err
				}
			}
		}
	}

	for _, option := range defaultInsuranceOptions {
		option := option
		if err := s.repo.CreateInsuranceOption(ctx, &option); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("failed to seed insurance option %s: %w", option.Name, err)
		}
		slog.Info("Created insurance option", "name", option.Name)
	}

	slog.Info("Database seeding completed successfully")
	return nil
}

// seedAdmin creates the configured admin account once
func (s *DatabaseSeeder) seedAdmin(ctx context.Context) error {
	if s.adminEmail == "" || s.adminPassword == "" {
		slog.Warn("No admin credentials configured, skipping admin user")
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(s.adminEmail))

	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", email, err)
	}
	if existingUser != nil {
		slog.Info("User already exists, skipping", "email", email)
		return nil
	}

	hashed, err := HashPassword(s.adminPassword)
	if err != nil {
		return err
	}
	user := &models.User{Email: email, Password: hashed, FullName: "Administrator", Role: models.RoleAdmin, IsActive: true}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", email, err)
	}
	slog.Info("Created user", "email", email, "role", user.Role)
	return nil
}

// ensureLookup returns the row with this name, creating it when missing
func (s *DatabaseSeeder) ensureLookup(ctx context.Context, kind models.LookupKind, name string, parentID *string, amount *float64) (*models.Lookup, error) {
	f := repository.LookupFilter{ListParams: repository.ListParams{Page: 1, Limit: 50, Search: name}}
	if parentID != nil {
		f.ParentID = *parentID
	}
	existing, _, err := s.repo.ListLookups(ctx, kind, f)
	if err != nil {
		return nil, fmt.Errorf("error checking %s %s: %w", kind.Slug, name, err)
	}
	for i := range existing {
		if strings.EqualFold(existing[i].Name, name) {
			return &existing[i], nil
		}
	}

	item := &models.Lookup{Name: name, ParentID: parentID, Amount: amount}
	if err := s.repo.CreateLookup(ctx, kind, item); err != nil {
		return nil, fmt.Errorf("failed to seed %s %s: %w", kind.Slug, name, err)
	}
	slog.Info("Created lookup", "kind", kind.Slug, "name", name)
	return item, nil
}
