package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/krshsl/rentdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOversizedBodyIsRejected(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(http.MethodPost, "/api/v1/lookups/vehicle-makes", map[string]string{
		"name": "Toyota", "description": strings.Repeat("x", maxBodyBytes+1),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", body.Error)

	rec, body = env.request(http.MethodGet, "/api/v1/lookups/vehicle-makes", nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	require.NotNil(t, body.Pagination)
	assert.Zero(t, body.Pagination.Total)
}

func TestLookupKinds(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(http.MethodGet, "/api/v1/lookups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var kinds []models.LookupKind
	decode(t, body, &kinds)
	assert.Len(t, kinds, len(models.LookupKinds()))

	rec, body = env.request(http.MethodGet, "/api/v1/lookups/unknown-things", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lookup table not found", body.Error)
}

func TestLookupCRUD(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/v1/lookups/vehicle-colors"

	var red models.Lookup
	env.create(base, map[string]string{"name": "  Red  "}, &red)
	assert.Equal(t, "Red", red.Name)

	tests := []struct {
		name    string
		body    map[string]interface{}
		wantErr string
	}{
		{"missing name", map[string]interface{}{"description": "no name"}, "name is required"},
		{"blank name", map[string]interface{}{"name": "   "}, "name is required"},
		{"duplicate ignores case", map[string]interface{}{"name": "RED"}, "Vehicle color with this name already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.request(http.MethodPost, base, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}

	var blue models.Lookup
	env.create(base, map[string]string{"name": "Blue"}, &blue)

	rec, body := env.request(http.MethodPut, base+"/"+blue.ID, map[string]string{"name": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Vehicle color with this name already exists", body.Error)

	rec, body = env.request(http.MethodPut, base+"/"+blue.ID, map[string]string{"name": "Navy"})
	require.Equal(t, http.StatusOK, rec.Code, body.Error)

	rec, body = env.request(http.MethodGet, base+"/"+blue.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var navy models.Lookup
	decode(t, body, &navy)
	assert.Equal(t, "Navy", navy.Name)

	rec, _ = env.request(http.MethodDelete, base+"/"+blue.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = env.request(http.MethodDelete, base+"/"+blue.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Vehicle color not found", body.Error)
}

func TestLookupParentRules(t *testing.T) {
	env := newTestEnv(t)

	var toyota, honda models.Lookup
	env.create("/api/v1/lookups/vehicle-makes", map[string]string{"name": "Toyota"}, &toyota)
	env.create("/api/v1/lookups/vehicle-makes", map[string]string{"name": "Honda"}, &honda)

	rec, body := env.request(http.MethodPost, "/api/v1/lookups/vehicle-models", map[string]string{"name": "Corolla"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "parent_id is required", body.Error)

	var corolla models.Lookup
	env.create("/api/v1/lookups/vehicle-models", map[string]string{"name": "Corolla", "parent_id": toyota.ID}, &corolla)

	// Model names are unique per make only
	env.create("/api/v1/lookups/vehicle-models", map[string]string{"name": "Corolla", "parent_id": honda.ID}, nil)

	rec, _ = env.request(http.MethodGet, "/api/v1/lookups/vehicle-models?parent_id="+toyota.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.request(http.MethodDelete, "/api/v1/lookups/vehicle-makes/"+toyota.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete vehicle make: it is referenced by existing records", body.Error)

	rec, body = env.request(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{
		"plate_number": "X-1", "vin": "VINX1", "make_id": honda.ID, "model_id": corolla.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Vehicle model does not belong to the selected make", body.Error)
}

func TestRequireModelOfMake(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	endpoints := NewVehicleEndpoints(env.repo, nil)

	var toyota, honda, corolla models.Lookup
	env.create("/api/v1/lookups/vehicle-makes", map[string]string{"name": "Toyota"}, &toyota)
	env.create("/api/v1/lookups/vehicle-makes", map[string]string{"name": "Honda"}, &honda)
	env.create("/api/v1/lookups/vehicle-models", map[string]string{"name": "Corolla", "parent_id": toyota.ID}, &corolla)

	tests := []struct {
		name    string
		modelID string
		makeID  string
		wantErr string
	}{
		{name: "matching make", modelID: corolla.ID, makeID: toyota.ID},
		{name: "other make", modelID: corolla.ID, makeID: honda.ID, wantErr: "Vehicle model does not belong to the selected make"},
		{name: "model gone", modelID: "00000000-0000-0000-0000-000000000000", makeID: toyota.ID, wantErr: "Vehicle model does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := endpoints.requireModelOfMake(ctx, tt.modelID, tt.makeID)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var apiErr *apiError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tt.wantErr, apiErr.Message)
		})
	}
}

func TestAddOnRequiresAmount(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(http.MethodPost, "/api/v1/lookups/contract-add-ons", map[string]string{"name": "GPS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount is required", body.Error)

	var gps models.Lookup
	env.create("/api/v1/lookups/contract-add-ons", map[string]interface{}{"name": "GPS", "amount": 7.5}, &gps)
	require.NotNil(t, gps.Amount)
	assert.Equal(t, 7.5, *gps.Amount)
}

func TestPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 15; i++ {
		env.create("/api/v1/lookups/nationalities", map[string]string{"name": fmt.Sprintf("Nation %02d", i)}, nil)
	}

	tests := []struct {
		query     string
		wantItems int
		wantPage  Pagination
	}{
		{"", 10, Pagination{Page: 1, Limit: 10, Total: 15, TotalPages: 2}},
		{"?page=2&limit=10", 5, Pagination{Page: 2, Limit: 10, Total: 15, TotalPages: 2}},
		{"?page=3&limit=10", 0, Pagination{Page: 3, Limit: 10, Total: 15, TotalPages: 2}},
		{"?limit=500", 15, Pagination{Page: 1, Limit: 100, Total: 15, TotalPages: 1}},
		{"?page=-1&limit=abc", 10, Pagination{Page: 1, Limit: 10, Total: 15, TotalPages: 2}},
		{"?search=nation%2001", 1, Pagination{Page: 1, Limit: 10, Total: 1, TotalPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, body := env.request(http.MethodGet, "/api/v1/lookups/nationalities"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, body.Pagination)
			assert.Equal(t, tt.wantPage, *body.Pagination)

			var items []models.Lookup
			decode(t, body, &items)
			assert.Len(t, items, tt.wantItems)
		})
	}
}

func TestVehicleUniqueness(t *testing.T) {
	env := newTestEnv(t)

	var feature models.Lookup
	env.create("/api/v1/lookups/vehicle-features", map[string]string{"name": "Sunroof"}, &feature)

	var vehicle models.Vehicle
	env.create("/api/v1/vehicles", map[string]interface{}{
		"plate_number": "ABC-123", "vin": "VIN0001", "daily_rate": 40, "feature_ids": []string{feature.ID},
	}, &vehicle)
	require.Len(t, vehicle.Features, 1)

	rec, body := env.request(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{
		"plate_number": "ABC-123", "vin": "VIN0002",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Vehicle with this plate number already exists", body.Error)

	rec, body = env.request(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{
		"plate_number": "XYZ-999", "vin": "VIN0001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Vehicle with this VIN already exists", body.Error)

	rec, body = env.request(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{"vin": "VIN0003"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "plate_number is required", body.Error)

	// The feature is attached, so it cannot go
	rec, _ = env.request(http.MethodDelete, "/api/v1/lookups/vehicle-features/"+feature.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.request(http.MethodPut, "/api/v1/vehicles/"+vehicle.ID+"/features", map[string]interface{}{"feature_ids": []string{}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.request(http.MethodDelete, "/api/v1/lookups/vehicle-features/"+feature.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVehicleWithContractCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	f := env.newRentalFixture("V")
	env.openContract(f, nil)

	rec, body := env.request(http.MethodDelete, "/api/v1/vehicles/"+f.vehicle.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete vehicle: it is referenced by existing records", body.Error)

	rec, body = env.request(http.MethodDelete, "/api/v1/customers/"+f.customer.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete customer: it is referenced by existing records", body.Error)
}

func TestCustomerAndCompany(t *testing.T) {
	env := newTestEnv(t)

	var company models.Company
	env.create("/api/v1/companies", map[string]interface{}{"name": "Acme Ltd", "registration_number": "REG-1"}, &company)

	rec, body := env.request(http.MethodPost, "/api/v1/companies", map[string]interface{}{"name": "acme ltd", "registration_number": "REG-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Company with this name already exists", body.Error)

	customer := map[string]interface{}{
		"full_name": "Sam Lee", "phone": "555", "national_id": "N-1", "license_number": "L-1", "company_id": company.ID,
	}
	var created models.Customer
	env.create("/api/v1/customers", customer, &created)

	customer["license_number"] = "L-2"
	rec, body = env.request(http.MethodPost, "/api/v1/customers", customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Customer with this national ID already exists", body.Error)

	customer["national_id"] = "N-2"
	customer["company_id"] = "00000000-0000-0000-0000-000000000000"
	rec, body = env.request(http.MethodPost, "/api/v1/customers", customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Company does not exist", body.Error)

	rec, body = env.request(http.MethodDelete, "/api/v1/companies/"+company.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete company: it is referenced by existing records", body.Error)

	rec, body = env.request(http.MethodPost, "/api/v1/customers/"+created.ID+"/blacklist", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason is required", body.Error)

	rec, _ = env.request(http.MethodDelete, "/api/v1/customers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.request(http.MethodDelete, "/api/v1/companies/"+company.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInsurance(t *testing.T) {
	env := newTestEnv(t)

	var option models.InsuranceOption
	env.create("/api/v1/insurance/options", map[string]interface{}{"name": "Basic", "daily_rate": 4, "is_active": false}, &option)
	assert.False(t, option.IsActive)

	var vehicle models.Vehicle
	env.create("/api/v1/vehicles", map[string]interface{}{"plate_number": "INS-1", "vin": "VININS1", "daily_rate": 30}, &vehicle)

	policy := map[string]interface{}{
		"policy_number": "POL-1", "provider": "Shield", "vehicle_id": vehicle.ID,
		"start_date": "2026-01-10", "end_date": "2026-01-01",
	}
	rec, body := env.request(http.MethodPost, "/api/v1/insurance/policies", policy)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end_date must not be before start_date", body.Error)

	policy["end_date"] = "2027-01-09"
	env.create("/api/v1/insurance/policies", policy, nil)

	rec, body = env.request(http.MethodPost, "/api/v1/insurance/policies", policy)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insurance policy with this policy number already exists", body.Error)

	// Inactive options cannot be sold on new contracts
	f := env.newRentalFixture("I")
	rec, body = env.request(http.MethodPost, "/api/v1/contracts", map[string]interface{}{
		"customer_id": f.customer.ID, "vehicle_id": f.vehicle.ID, "start_date": "2026-05-01",
		"duration_days": 1, "insurance_option_id": option.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insurance option is not active", body.Error)
}

func TestFinanceRecordsAndSummary(t *testing.T) {
	env := newTestEnv(t)
	f := env.newRentalFixture("M")
	contract := env.openContract(f, nil)

	rec, body := env.request(http.MethodPost, "/api/v1/finance", map[string]interface{}{
		"type": "payment", "method": "cash", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "contract_id, customer_id or company_id is required", body.Error)

	rec, body = env.request(http.MethodPost, "/api/v1/finance", map[string]interface{}{
		"type": "payment", "method": "cash", "amount": 0, "customer_id": f.customer.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount must be greater than 0", body.Error)

	var payment models.FinanceRecord
	env.create("/api/v1/finance", map[string]interface{}{
		"contract_id": contract.ID, "type": "payment", "method": "transfer", "amount": 150, "recorded_at": "2026-03-01",
	}, &payment)
	require.NotNil(t, payment.CustomerID)
	assert.Equal(t, f.customer.ID, *payment.CustomerID)
	assert.Equal(t, "admin", payment.RecordedBy)

	env.create("/api/v1/finance", map[string]interface{}{
		"type": "expense", "method": "card", "amount": 40, "description": "Car wash", "recorded_at": "2026-03-02",
	}, nil)
	env.create("/api/v1/finance", map[string]interface{}{
		"contract_id": contract.ID, "type": "refund", "method": "cash", "amount": 15, "recorded_at": "2026-04-01",
	}, nil)

	rec, body = env.request(http.MethodGet, "/api/v1/finance/summary?from=2026-03-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	var march models.FinanceSummary
	decode(t, body, &march)
	assert.Equal(t, 150.0, march.Payments)
	assert.Equal(t, 40.0, march.Expenses)
	assert.Equal(t, 0.0, march.Refunds)
	assert.Equal(t, 110.0, march.Net)

	rec, body = env.request(http.MethodGet, "/api/v1/finance?contract_id="+contract.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body.Pagination.Total)

	rec, body = env.request(http.MethodGet, "/api/v1/finance?from=2026-04-01&to=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "from must not be after to", body.Error)
}
