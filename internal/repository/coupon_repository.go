package repository

import (
	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// GormCouponRepository is a GORM implementation of CouponRepository
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates a new CouponRepository
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

func (r *GormCouponRepository) FindByID(id string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *GormCouponRepository) ListByBoard(boardID string) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.Where("board_id = ?", boardID).Order("cost ASC, title ASC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Model(coupon).Select("title", "description", "cost").Updates(coupon).Error
}

func (r *GormCouponRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Coupon{}).Error
}
