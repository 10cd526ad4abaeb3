package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/constants"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"gorm.io/gorm"
)

// RequireBoardAccess checks if the user is a member of the board in the :id parameter
func RequireBoardAccess(boards repository.BoardRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID := c.Param("id")
		if boardID == "" {
			apierrors.BadRequest(c, "Invalid board ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		board, err := boards.FindByID(boardID)
		if err != nil {
			abortLookup(c, err, "Board not found")
			return
		}

		member, err := boards.FindMember(boardID, userID)
		if err != nil {
			// 404 rather than 403 so non-members cannot discover board ids
			abortLookup(c, err, "Board not found")
			return
		}

		c.Set(constants.ContextKeyBoard, *board)
		c.Set(constants.ContextKeyBoardMember, *member)
		c.Next()
	}
}

// RequireBoardAdmin checks if the member set by RequireBoardAccess is an admin
func RequireBoardAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetBoardMember(c)
		if !ok {
			apierrors.Forbidden(c, "Board access required")
			c.Abort()
			return
		}

		if !member.IsAdmin() {
			apierrors.Forbidden(c, "Only board admins can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetBoard returns the board loaded by RequireBoardAccess
func GetBoard(c *gin.Context) (models.Board, bool) {
	v, exists := c.Get(constants.ContextKeyBoard)
	if !exists {
		return models.Board{}, false
	}
	board, ok := v.(models.Board)
	return board, ok
}

// GetBoardMember returns the membership loaded by RequireBoardAccess or RequireTaskAccess
func GetBoardMember(c *gin.Context) (models.BoardMember, bool) {
	v, exists := c.Get(constants.ContextKeyBoardMember)
	if !exists {
		return models.BoardMember{}, false
	}
	member, ok := v.(models.BoardMember)
	return member, ok
}

func abortLookup(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierrors.NotFound(c, notFound)
	} else {
		apierrors.InternalError(c, "")
	}
	c.Abort()
}
