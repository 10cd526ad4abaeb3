package repository

import (
	"strings"

	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves profile and preference fields
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Model(user).Select(
		"name", "photo_url", "device_token", "notifications_enabled", "selected_board_id",
	).Updates(user).Error
}

// SearchByPrefix returns users whose name or email starts with query
func (r *GormUserRepository) SearchByPrefix(query string, limit int) ([]models.User, error) {
	var users []models.User
	prefix := strings.ToLower(strings.TrimSpace(query)) + "%"
	if err := r.db.
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", prefix, prefix).
		Order("name ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
