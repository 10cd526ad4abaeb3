package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/middleware"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/services"
	"github.com/wemake-app/wemake-api/internal/utils"
)

type CouponHandler struct {
	couponService *services.CouponService
}

func NewCouponHandler(couponService *services.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// ListCoupons returns the board's coupons
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.couponService.ListCoupons(c.Param("id"))
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// CreateCoupon creates a coupon (admin only)
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	coupon, err := h.couponService.CreateCoupon(c.Param("id"), userID, services.CouponInput{
		Title:       req.Title,
		Description: req.Description,
		Cost:        req.Cost,
	})
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusCreated, coupon)
}

// UpdateCoupon updates a coupon (admin only)
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	coupon, err := h.couponService.UpdateCoupon(c.Param("id"), c.Param("coupon_id"), services.CouponInput{
		Title:       req.Title,
		Description: req.Description,
		Cost:        req.Cost,
	})
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, coupon)
}

// DeleteCoupon deletes a coupon (admin only)
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	if err := h.couponService.DeleteCoupon(c.Param("id"), c.Param("coupon_id")); err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted successfully"})
}

// RedeemCoupon debits the coupon cost and creates a pending request
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	request, err := h.couponService.Redeem(c.Param("id"), c.Param("coupon_id"), userID)
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// ListRedemptions lists redemption requests. Admins see every request on the
// board, members only their own.
func (h *CouponHandler) ListRedemptions(c *gin.Context) {
	member, _ := middleware.GetBoardMember(c)
	params := utils.GetPaginationParams(c)

	input := services.ListRedemptionsInput{
		BoardID: c.Param("id"),
		Viewer:  &member,
		Offset:  params.Offset,
		Limit:   params.Limit,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.RedemptionStatus(raw)
		input.Status = &status
	}

	requests, total, err := h.couponService.ListRedemptions(input)
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RedemptionListResponse{
		Requests: requests,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// ApproveRedemption approves a pending request (admin only)
func (h *CouponHandler) ApproveRedemption(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	request, err := h.couponService.ApproveRedemption(c.Param("id"), c.Param("request_id"), userID)
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// DenyRedemption denies a pending request and refunds its cost (admin only)
func (h *CouponHandler) DenyRedemption(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	request, err := h.couponService.DenyRedemption(c.Param("id"), c.Param("request_id"), userID)
	if err != nil {
		respondCouponError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func respondCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCouponTitleRequired),
		errors.Is(err, services.ErrInvalidCouponCost),
		errors.Is(err, services.ErrInvalidRedemptionState):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrCouponNotFound),
		errors.Is(err, services.ErrRedemptionNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInsufficientPoints):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeInsufficientPoints, err.Error())
	case errors.Is(err, services.ErrRedemptionProcessed):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrRequesterLeftBoard):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeRequesterLeftBoard, err.Error())
	case errors.Is(err, services.ErrNotBoardMember):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
