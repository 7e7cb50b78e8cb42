package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/krshsl/rentdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *GORMRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Options{
		Driver:       DriverSQLite,
		URL:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	repo := NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedRental(t *testing.T, repo *GORMRepository, suffix string) (*models.Customer, *models.Vehicle) {
	t.Helper()
	ctx := context.Background()
	customer := &models.Customer{FullName: "Renter " + suffix, Phone: "555", NationalID: "N" + suffix, LicenseNumber: "L" + suffix}
	require.NoError(t, repo.CreateCustomer(ctx, customer))
	vehicle := &models.Vehicle{PlateNumber: "P" + suffix, VIN: "V" + suffix, DailyRate: 40, Mileage: 100, Availability: models.AvailabilityAvailable}
	require.NoError(t, repo.CreateVehicle(ctx, vehicle, nil))
	return customer, vehicle
}

func newContract(customer *models.Customer, vehicle *models.Vehicle, number string, start time.Time, days int) *models.Contract {
	return &models.Contract{
		ContractNumber: number,
		CustomerID:     customer.ID,
		VehicleID:      vehicle.ID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, days),
		DurationDays:   days,
		DailyRate:      vehicle.DailyRate,
		TotalAmount:    vehicle.DailyRate * float64(days),
		MileageOut:     vehicle.Mileage,
		Status:         models.ContractOpen,
	}
}

func TestLookupConstraints(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	makes := models.MustLookupKind(models.KindVehicleMakes)
	modelKind := models.MustLookupKind(models.KindVehicleModels)

	toyota := &models.Lookup{Name: "Toyota"}
	require.NoError(t, repo.CreateLookup(ctx, makes, toyota))

	err := repo.CreateLookup(ctx, makes, &models.Lookup{Name: "toyota"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	var constraintErr *ConstraintError
	require.True(t, errors.As(err, &constraintErr))
	assert.Equal(t, "Vehicle make with this name already exists", constraintErr.Error())

	// Renaming to its own name is not a conflict
	toyota.Name = "TOYOTA"
	require.NoError(t, repo.UpdateLookup(ctx, makes, toyota))

	corolla := &models.Lookup{Name: "Corolla", ParentID: &toyota.ID}
	require.NoError(t, repo.CreateLookup(ctx, modelKind, corolla))

	err = repo.DeleteLookup(ctx, makes, toyota.ID)
	assert.True(t, errors.Is(err, ErrInUse))
	assert.Equal(t, "Cannot delete vehicle make: it is referenced by existing records", err.Error())

	require.NoError(t, repo.DeleteLookup(ctx, modelKind, corolla.ID))
	require.NoError(t, repo.DeleteLookup(ctx, makes, toyota.ID))

	got, err := repo.GetLookup(ctx, makes, toyota.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupsAreIsolatedPerTable(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateLookup(ctx, models.MustLookupKind(models.KindVehicleColors), &models.Lookup{Name: "Silver"}))
	require.NoError(t, repo.CreateLookup(ctx, models.MustLookupKind(models.KindVehicleFeatures), &models.Lookup{Name: "Silver"}))

	items, total, err := repo.ListLookups(ctx, models.MustLookupKind(models.KindVehicleColors), LookupFilter{ListParams: ListParams{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)
}

func TestListPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	kind := models.MustLookupKind(models.KindProfessions)
	for i := 1; i <= 23; i++ {
		require.NoError(t, repo.CreateLookup(ctx, kind, &models.Lookup{Name: fmt.Sprintf("Job %02d", i)}))
	}

	items, total, err := repo.ListLookups(ctx, kind, LookupFilter{ListParams: ListParams{Page: 3, Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 23, total)
	require.Len(t, items, 3)
	assert.Equal(t, "Job 21", items[0].Name)

	items, total, err = repo.ListLookups(ctx, kind, LookupFilter{ListParams: ListParams{Page: 1, Limit: 10, Search: "JOB 1"}})
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
	assert.Len(t, items, 10)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	kind := models.MustLookupKind(models.KindProfessions)
	for _, name := range []string{"Sales_Rep", "SalesXRep", "100% Remote", `Back\Office`} {
		require.NoError(t, repo.CreateLookup(ctx, kind, &models.Lookup{Name: name}))
	}

	tests := []struct {
		search string
		want   []string
	}{
		{search: "_", want: []string{"Sales_Rep"}},
		{search: "s_r", want: []string{"Sales_Rep"}},
		{search: "%", want: []string{"100% Remote"}},
		{search: `\`, want: []string{`Back\Office`}},
		{search: "rep", want: []string{"Sales_Rep", "SalesXRep"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			items, total, err := repo.ListLookups(ctx, kind, LookupFilter{ListParams: ListParams{Page: 1, Limit: 10, Search: tt.search}})
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
			names := make([]string, len(items))
			for i, item := range items {
				names[i] = item.Name
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestVehicleIdentifiersAreUnique(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, vehicle := seedRental(t, repo, "1")

	err := repo.CreateVehicle(ctx, &models.Vehicle{PlateNumber: strings.ToLower(vehicle.PlateNumber), VIN: "other"}, nil)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, "Vehicle with this plate number already exists", err.Error())

	vehicle.Notes = "serviced"
	require.NoError(t, repo.UpdateVehicle(ctx, vehicle))
}

func TestCreateContractReservesVehicle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	customer, vehicle := seedRental(t, repo, "1")

	first := newContract(customer, vehicle, "CT-1", day(2026, 3, 1), 2)
	require.NoError(t, repo.CreateContract(ctx, first, "tester"))

	got, err := repo.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityRented, got.Availability)

	second := newContract(customer, vehicle, "CT-2", day(2026, 3, 1), 2)
	assert.ErrorIs(t, repo.CreateContract(ctx, second, "tester"), ErrVehicleUnavailable)

	// The vehicle form cannot overwrite a reservation it did not see
	assert.ErrorIs(t, repo.SetVehicleAvailability(ctx, vehicle.ID, models.AvailabilityAvailable, models.AvailabilityMaintenance), ErrStatusConflict)

	events, err := repo.ListContractEvents(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ContractOpen, events[0].ToStatus)
	assert.Equal(t, "tester", events[0].Actor)
}

func TestTransitionContractCompareAndSet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	customer, vehicle := seedRental(t, repo, "1")
	contract := newContract(customer, vehicle, "CT-1", day(2026, 3, 1), 2)
	require.NoError(t, repo.CreateContract(ctx, contract, "tester"))

	hold := ContractTransition{
		ContractID: contract.ID, VehicleID: vehicle.ID,
		From: models.ContractOpen, To: models.ContractOnHold, Reason: "waiting", Actor: "a", At: time.Now(),
	}
	require.NoError(t, repo.TransitionContract(ctx, hold))

	// A second writer that still believes the contract is open loses
	stale := hold
	stale.To = models.ContractCancelled
	assert.ErrorIs(t, repo.TransitionContract(ctx, stale), ErrStatusConflict)

	mileage := 350
	require.NoError(t, repo.TransitionContract(ctx, ContractTransition{
		ContractID: contract.ID, VehicleID: vehicle.ID,
		From: models.ContractOnHold, To: models.ContractClosed, MileageIn: &mileage, Actor: "b", At: time.Now(),
	}))

	got, err := repo.GetContract(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractClosed, got.Status)
	require.NotNil(t, got.MileageIn)
	assert.Equal(t, 350, *got.MileageIn)

	v, err := repo.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityAvailable, v.Availability)
	assert.Equal(t, 350, v.Mileage)

	events, err := repo.ListContractEvents(ctx, contract.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestFlagOverdueContracts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	c1, v1 := seedRental(t, repo, "1")
	c2, v2 := seedRental(t, repo, "2")
	late := newContract(c1, v1, "CT-1", day(2026, 3, 1), 2)
	current := newContract(c2, v2, "CT-2", day(2026, 3, 1), 20)
	require.NoError(t, repo.CreateContract(ctx, late, "t"))
	require.NoError(t, repo.CreateContract(ctx, current, "t"))

	flagged, err := repo.FlagOverdueContracts(ctx, day(2026, 3, 5))
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, late.ID, flagged[0].ID)

	n, err := repo.CountOverdueContracts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Extending the contract past now clears the flag on the next sweep
	late.EndDate = day(2026, 4, 1)
	late.DurationDays = 31
	require.NoError(t, repo.UpdateContractTerms(ctx, late))
	flagged, err = repo.FlagOverdueContracts(ctx, day(2026, 3, 6))
	require.NoError(t, err)
	assert.Empty(t, flagged)

	n, err = repo.CountOverdueContracts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestContractBalanceAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	customer, vehicle := seedRental(t, repo, "1")
	contract := newContract(customer, vehicle, "CT-1", day(2026, 3, 1), 5)
	require.NoError(t, repo.CreateContract(ctx, contract, "t"))

	for _, rec := range []models.FinanceRecord{
		{Type: models.FinanceDeposit, Method: "cash", Amount: 50},
		{Type: models.FinancePayment, Method: "card", Amount: 100},
		{Type: models.FinancePayment, Method: "card", Amount: 25.25},
		{Type: models.FinanceCharge, Method: "cash", Amount: 10},
	} {
		rec := rec
		rec.ContractID = &contract.ID
		rec.CustomerID = &customer.ID
		rec.RecordedAt = day(2026, 3, 2)
		require.NoError(t, repo.CreateFinanceRecord(ctx, &rec))
	}

	balance, err := repo.ContractBalance(ctx, contract)
	require.NoError(t, err)
	assert.Equal(t, 200.0, balance.TotalAmount)
	assert.Equal(t, 125.25, balance.Payments)
	assert.Equal(t, 50.0, balance.Deposits)
	assert.Equal(t, 34.75, balance.Due)

	require.NoError(t, repo.TransitionContract(ctx, ContractTransition{
		ContractID: contract.ID, VehicleID: vehicle.ID, From: models.ContractOpen, To: models.ContractCancelled, Reason: "x", At: time.Now(),
	}))
	assert.ErrorIs(t, repo.DeleteContract(ctx, contract.ID), ErrInUse)
	assert.ErrorIs(t, repo.DeleteCustomer(ctx, customer.ID), ErrInUse)
}
