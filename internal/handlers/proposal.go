package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/services"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
}

func NewProposalHandler(proposalService *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService}
}

// ListProposals returns the board's proposals awaiting approval (admin only)
func (h *ProposalHandler) ListProposals(c *gin.Context) {
	proposals, err := h.proposalService.ListProposals(c.Param("id"))
	if err != nil {
		respondProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": dto.ToProposalDTOs(proposals)})
}

// ApproveProposal turns a proposal into a task, optionally overriding its points
func (h *ProposalHandler) ApproveProposal(c *gin.Context) {
	type ApproveRequest struct {
		RewardPoints  *int64 `json:"reward_points"`
		PenaltyPoints *int64 `json:"penalty_points"`
	}

	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	task, err := h.proposalService.ApproveProposal(c.Request.Context(), c.Param("id"), c.Param("proposal_id"),
		services.ApproveProposalInput{
			RewardPoints:  req.RewardPoints,
			PenaltyPoints: req.PenaltyPoints,
		})
	if err != nil {
		respondProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, time.Now()))
}

// DenyProposal discards a proposal
func (h *ProposalHandler) DenyProposal(c *gin.Context) {
	if err := h.proposalService.DenyProposal(c.Request.Context(), c.Param("id"), c.Param("proposal_id")); err != nil {
		respondProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proposal denied"})
}

func respondProposalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProposalNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidPoints):
		apierrors.BadRequest(c, err.Error())
	default:
		respondTaskError(c, err)
	}
}
