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
)

type BoardHandler struct {
	boardService *services.BoardService
}

func NewBoardHandler(boardService *services.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// CreateBoard creates a new board with the current user as admin
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type CreateBoardRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	board, err := h.boardService.CreateBoard(services.CreateBoardInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		CreatorID:   userID,
	})
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.BoardWithRoleDTO{
		BoardDTO: dto.ToBoardDTO(*board, true),
		Role:     models.RoleAdmin,
	})
}

// ListBoards returns the boards the current user belongs to
func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	members, err := h.boardService.ListBoardsForUser(userID)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	boards := make([]dto.BoardWithRoleDTO, len(members))
	for i, m := range members {
		boards[i] = dto.ToBoardWithRoleDTO(m)
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

// GetBoard returns board details with members
// Board access is checked by RequireBoardAccess middleware
func (h *BoardHandler) GetBoard(c *gin.Context) {
	member, _ := middleware.GetBoardMember(c)

	board, members, err := h.boardService.GetBoardWithMembers(c.Param("id"))
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDetailDTO(*board, members, member.Role))
}

// UpdateBoard updates name, description or color (admin only)
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	type UpdateBoardRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
	}

	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	board, err := h.boardService.UpdateBoard(c.Param("id"), services.UpdateBoardInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDTO(*board, true))
}

// DeleteBoard deletes the board and everything on it (admin only)
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	if err := h.boardService.DeleteBoard(c.Param("id")); err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Board deleted successfully"})
}

// RegenerateInviteCode replaces the invite code (admin only)
func (h *BoardHandler) RegenerateInviteCode(c *gin.Context) {
	board, err := h.boardService.RegenerateInviteCode(c.Param("id"))
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDTO(*board, true))
}

// JoinBoard joins a board using an invite code
func (h *BoardHandler) JoinBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type JoinBoardRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	board, err := h.boardService.JoinBoardByInvite(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BoardWithRoleDTO{
		BoardDTO: dto.ToBoardDTO(*board, true),
		Role:     models.RoleUser,
	})
}

// AddMember adds a user to the board (admin only)
func (h *BoardHandler) AddMember(c *gin.Context) {
	type AddMemberRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.boardService.AddMember(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, memberResponse(member))
}

// RemoveMember removes a user from the board (admin only)
func (h *BoardHandler) RemoveMember(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.boardService.RemoveMember(c.Param("id"), userID, c.Param("user_id")); err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

// UpdateMemberRole changes a member's role (admin only)
func (h *BoardHandler) UpdateMemberRole(c *gin.Context) {
	type UpdateRoleRequest struct {
		Role models.Role `json:"role" binding:"required"`
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.boardService.UpdateMemberRole(c.Param("id"), c.Param("user_id"), req.Role)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, memberResponse(member))
}

func memberResponse(m *models.BoardMember) gin.H {
	return gin.H{
		"board_id":  m.BoardID,
		"user_id":   m.UserID,
		"role":      m.Role,
		"points":    m.Points,
		"joined_at": m.JoinedAt,
	}
}

func respondBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidBoardName),
		errors.Is(err, services.ErrInvalidInviteCode),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrBoardNotFound):
		apierrors.NotFoundWithCode(c, apierrors.ErrCodeBoardNotFound, err.Error())
	case errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeAlreadyMember, err.Error())
	case errors.Is(err, services.ErrCannotRemoveYourself),
		errors.Is(err, services.ErrLastAdmin):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInviteCodeGenerationFailed):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
