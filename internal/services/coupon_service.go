package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCouponNotFound         = errors.New("coupon not found")
	ErrCouponTitleRequired    = errors.New("coupon title is required")
	ErrInvalidCouponCost      = errors.New("coupon cost must be greater than zero")
	ErrInsufficientPoints     = errors.New("not enough points to redeem this coupon")
	ErrRedemptionNotFound     = errors.New("redemption request not found")
	ErrRedemptionProcessed    = errors.New("redemption request was already processed")
	ErrInvalidRedemptionState = errors.New("invalid redemption status")
	ErrRequesterLeftBoard     = errors.New("the requester is no longer a board member; the refund cannot be credited")
)

// CouponService handles coupons and point redemptions.
type CouponService struct {
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	publisher      Publisher
	now            func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(couponRepo repository.CouponRepository, redemptionRepo repository.RedemptionRepository, publisher Publisher) *CouponService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CouponService{
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		publisher:      publisher,
		now:            time.Now,
	}
}

// CouponInput holds the editable coupon fields.
type CouponInput struct {
	Title       string
	Description string
	Cost        int64
}

func (in CouponInput) validate() (CouponInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, ErrCouponTitleRequired
	}
	if in.Cost <= 0 {
		return in, ErrInvalidCouponCost
	}
	return in, nil
}

// CreateCoupon adds a coupon to the board.
func (s *CouponService) CreateCoupon(boardID, actorID string, input CouponInput) (*models.Coupon, error) {
	input, err := input.validate()
	if err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		BoardID:     boardID,
		Title:       input.Title,
		Description: input.Description,
		Cost:        input.Cost,
		CreatedBy:   actorID,
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return coupon, nil
}

// ListCoupons returns the board's coupons, cheapest first.
func (s *CouponService) ListCoupons(boardID string) ([]models.Coupon, error) {
	coupons, err := s.couponRepo.ListByBoard(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// UpdateCoupon edits a coupon. Pending requests keep the cost they were made with.
func (s *CouponService) UpdateCoupon(boardID, couponID string, input CouponInput) (*models.Coupon, error) {
	input, err := input.validate()
	if err != nil {
		return nil, err
	}

	coupon, err := s.findCoupon(boardID, couponID)
	if err != nil {
		return nil, err
	}

	coupon.Title = input.Title
	coupon.Description = input.Description
	coupon.Cost = input.Cost
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return coupon, nil
}

// DeleteCoupon removes a coupon.
func (s *CouponService) DeleteCoupon(boardID, couponID string) error {
	if _, err := s.findCoupon(boardID, couponID); err != nil {
		return err
	}
	if err := s.couponRepo.Delete(couponID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return nil
}

// Redeem debits the coupon cost from the member and records a pending request.
// The debit and the request are written together or not at all.
func (s *CouponService) Redeem(boardID, couponID, userID string) (*models.RedemptionRequest, error) {
	coupon, err := s.findCoupon(boardID, couponID)
	if err != nil {
		return nil, err
	}

	request := &models.RedemptionRequest{
		BoardID:     boardID,
		UserID:      userID,
		CouponID:    coupon.ID,
		CouponTitle: coupon.Title,
		Cost:        coupon.Cost,
		RequestedAt: s.now(),
	}

	if err := s.redemptionRepo.Redeem(request); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientPoints):
			return nil, ErrInsufficientPoints
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotBoardMember
		default:
			return nil, fmt.Errorf("failed to redeem coupon: %w", err)
		}
	}

	s.publisher.Publish(boardID, realtime.EventRedemptionCreated, request)
	s.publisher.Publish(boardID, realtime.EventPointsChanged, PointsChange{
		UserIDs: []string{userID},
		Delta:   -request.Cost,
		Reason:  "coupon_redeemed",
	})
	return request, nil
}

// ApproveRedemption marks a pending request approved. The balance is unchanged.
func (s *CouponService) ApproveRedemption(boardID, requestID, actorID string) (*models.RedemptionRequest, error) {
	if _, err := s.findRequest(boardID, requestID); err != nil {
		return nil, err
	}

	if err := s.redemptionRepo.Approve(requestID, actorID, s.now()); err != nil {
		return nil, s.mapResolveError(err)
	}

	request, err := s.findRequest(boardID, requestID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(boardID, realtime.EventRedemptionUpdated, request)
	return request, nil
}

// DenyRedemption marks a pending request denied and refunds the cost the
// request was made with.
func (s *CouponService) DenyRedemption(boardID, requestID, actorID string) (*models.RedemptionRequest, error) {
	if _, err := s.findRequest(boardID, requestID); err != nil {
		return nil, err
	}

	if err := s.redemptionRepo.Deny(requestID, actorID, s.now()); err != nil {
		return nil, s.mapResolveError(err)
	}

	request, err := s.findRequest(boardID, requestID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(boardID, realtime.EventRedemptionUpdated, request)
	s.publisher.Publish(boardID, realtime.EventPointsChanged, PointsChange{
		UserIDs: []string{request.UserID},
		Delta:   request.Cost,
		Reason:  "redemption_refunded",
	})
	return request, nil
}

// ListRedemptionsInput holds filtering options for listing requests.
type ListRedemptionsInput struct {
	BoardID string
	Viewer  *models.BoardMember
	Status  *models.RedemptionStatus
	Offset  int
	Limit   int
}

// ListRedemptions returns requests visible to the viewer: every request of
// the board for admins, only their own for other members.
func (s *CouponService) ListRedemptions(input ListRedemptionsInput) ([]models.RedemptionRequest, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidRedemptionState
	}

	filter := repository.RedemptionFilter{
		BoardID: input.BoardID,
		Status:  input.Status,
		Offset:  input.Offset,
		Limit:   input.Limit,
	}
	if !input.Viewer.IsAdmin() {
		filter.UserID = &input.Viewer.UserID
	}

	requests, total, err := s.redemptionRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list redemption requests: %w", err)
	}
	return requests, total, nil
}

func (s *CouponService) findCoupon(boardID, couponID string) (*models.Coupon, error) {
	coupon, err := s.couponRepo.FindByID(couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	if coupon.BoardID != boardID {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

func (s *CouponService) findRequest(boardID, requestID string) (*models.RedemptionRequest, error) {
	request, err := s.redemptionRepo.FindByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to find redemption request: %w", err)
	}
	if request.BoardID != boardID {
		return nil, ErrRedemptionNotFound
	}
	return request, nil
}

func (s *CouponService) mapResolveError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotPending):
		return ErrRedemptionProcessed
	case errors.Is(err, repository.ErrRequesterNotMember):
		return ErrRequesterLeftBoard
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRedemptionNotFound
	default:
		return fmt.Errorf("failed to process redemption request: %w", err)
	}
}
