package repository

import (
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// GormRedemptionRepository is a GORM implementation of RedemptionRepository
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository creates a new RedemptionRepository
func NewRedemptionRepository(db *gorm.DB) RedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// Redeem debits the member and records a pending request in one transaction.
// The debit is conditional on the balance covering the cost, so concurrent
// requests can never overdraw it.
func (r *GormRedemptionRepository) Redeem(request *models.RedemptionRequest) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BoardMember{}).
			Where("board_id = ? AND user_id = ? AND points >= ?", request.BoardID, request.UserID, request.Cost).
			UpdateColumn("points", gorm.Expr("points - ?", request.Cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.BoardMember{}).
				Where("board_id = ? AND user_id = ?", request.BoardID, request.UserID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrInsufficientPoints
		}

		request.Status = models.RedemptionPending
		return tx.Create(request).Error
	})
}

// FindByID finds a redemption request by ID
func (r *GormRedemptionRepository) FindByID(id string) (*models.RedemptionRequest, error) {
	var request models.RedemptionRequest
	if err := r.db.Preload("User").Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter and the total count
func (r *GormRedemptionRepository) List(filter RedemptionFilter) ([]models.RedemptionRequest, int64, error) {
	query := r.db.Model(&models.RedemptionRequest{}).Where("board_id = ?", filter.BoardID)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.RedemptionRequest
	if err := query.
		Preload("User").
		Order("requested_at DESC").
		Scopes(paginate(filter.Offset, filter.Limit)).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Approve marks a pending request approved
func (r *GormRedemptionRepository) Approve(id, actorID string, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		_, err := resolvePending(tx, id, models.RedemptionApproved, actorID, at)
		return err
	})
}

// Deny marks a pending request denied and refunds its cost snapshot. The
// request stays pending when the requester has left the board.
func (r *GormRedemptionRepository) Deny(id, actorID string, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		request, err := resolvePending(tx, id, models.RedemptionDenied, actorID, at)
		if err != nil {
			return err
		}

		res := tx.Model(&models.BoardMember{}).
			Where("board_id = ? AND user_id = ?", request.BoardID, request.UserID).
			UpdateColumn("points", gorm.Expr("points + ?", request.Cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequesterNotMember
		}
		return nil
	})
}

// resolvePending moves a request out of pending. Only one caller can win the
// conditional update, so a request is processed at most once.
func resolvePending(tx *gorm.DB, id string, status models.RedemptionStatus, actorID string, at time.Time) (*models.RedemptionRequest, error) {
	var request models.RedemptionRequest
	if err := tx.Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}

	res := tx.Model(&models.RedemptionRequest{}).
		Where("id = ? AND status = ?", id, models.RedemptionPending).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": at,
			"processed_by": actorID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotPending
	}

	return &request, nil
}
