package dto

import (
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/utils"
)

// CouponRequest is the body of coupon create and update
type CouponRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
}

// RedemptionListResponse represents a paginated list of redemption requests
type RedemptionListResponse struct {
	Requests   []models.RedemptionRequest `json:"requests"`
	Pagination utils.PaginationResponse   `json:"pagination"`
}
