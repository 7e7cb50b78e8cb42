package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/rentdesk/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// DB exposes the underlying handle for health checks
func (r *GORMRepository) DB() *gorm.DB {
	return r.db
}

// Ping checks the database connection
func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.PermanentToken{},
		&models.Company{},
		&models.Customer{},
		&models.Vehicle{},
		&models.VehicleFeatureLink{},
		&models.InsuranceOption{},
		&models.InsurancePolicy{},
		&models.Contract{},
		&models.ContractAddOnLink{},
		&models.ContractEvent{},
		&models.FinanceRecord{},
	); err != nil {
		return err
	}

	for _, kind := range models.LookupKinds() {
		if err := r.db.Table(kind.Table).AutoMigrate(&models.Lookup{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", kind.Table, err)
		}
		columns := "name"
		if kind.ParentSlug != "" {
			columns = "parent_id, name"
		}
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS uq_%s_name ON %s (%s)", kind.Table, kind.Table, columns)
		if err := r.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to index %s: %w", kind.Table, err)
		}
	}
	return nil
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return translateError(err)
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) ListUsers(ctx context.Context, p ListParams) ([]models.User, int64, error) {
	var users []models.User
	query := r.db.WithContext(ctx).Model(&models.User{}).Scopes(searchColumns(p.Search, "email", "full_name"))
	total, err := findPage(query, p, "email", &users)
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GORMRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		slog.Error("Failed to update user", "error", err, "user_id", user.ID)
		return translateError(err)
	}
	slog.Info("User updated", "user_id", user.ID)
	return nil
}

// DeleteUser permanently removes the account together with its sessions so the
// email can be registered again
func (r *GORMRepository) DeleteUser(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.PermanentToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", id).Delete(&models.User{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete user", "error", err, "user_id", id)
		return err
	}
	slog.Info("User deleted", "user_id", id)
	return nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) CreatePermanentToken(ctx context.Context, token *models.PermanentToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create permanent token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetPermanentToken(ctx context.Context, token string) (*models.PermanentToken, error) {
	var permanentToken models.PermanentToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&permanentToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get permanent token", "error", err)
		return nil, err
	}
	return &permanentToken, nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PermanentToken{}).Error; err != nil {
		slog.Error("Failed to delete user permanent tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// countWhere counts rows of a table matching one column value
func countWhere(tx *gorm.DB, table, column string, value interface{}) (int64, error) {
	var n int64
	err := tx.Table(table).Where(column+" = ?", value).Count(&n).Error
	return n, err
}

// referenced reports whether any of the references still point at id
func referenced(tx *gorm.DB, id string, refs ...models.Reference) (bool, error) {
	for _, ref := range refs {
		n, err := countWhere(tx, ref.Table, ref.Column, id)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// taken reports whether another row of table already holds value in column
func taken(tx *gorm.DB, table, column, value, excludeID string) (bool, error) {
	if value == "" {
		return false, nil
	}
	query := tx.Table(table).Where("LOWER("+column+") = LOWER(?)", value)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
