package dto

import (
	"time"

	"github.com/wemake-app/wemake-api/internal/models"
)

// BoardDTO represents a board in API responses
type BoardDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	InviteCode  string    `json:"invite_code,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardWithRoleDTO represents a board with the user's role and balance on it
type BoardWithRoleDTO struct {
	BoardDTO
	Role   models.Role `json:"role"`
	Points int64       `json:"points"`
}

// BoardMemberDTO represents a member of a board
type BoardMemberDTO struct {
	User     UserSummaryDTO `json:"user"`
	Role     models.Role    `json:"role"`
	Points   int64          `json:"points"`
	JoinedAt time.Time      `json:"joined_at"`
}

// BoardDetailDTO represents detailed board information
type BoardDetailDTO struct {
	BoardDTO
	Members  []BoardMemberDTO `json:"members"`
	YourRole models.Role      `json:"your_role"`
}

// ToBoardDTO converts a Board model. Invite codes are only shown to members.
func ToBoardDTO(board models.Board, includeInviteCode bool) BoardDTO {
	dto := BoardDTO{
		ID:          board.ID,
		Name:        board.Name,
		Description: board.Description,
		Color:       board.Color,
		CreatedBy:   board.CreatedBy,
		CreatedAt:   board.CreatedAt,
	}
	if includeInviteCode {
		dto.InviteCode = board.InviteCode
	}
	return dto
}

// ToBoardWithRoleDTO converts a membership with its preloaded board
func ToBoardWithRoleDTO(member models.BoardMember) BoardWithRoleDTO {
	return BoardWithRoleDTO{
		BoardDTO: ToBoardDTO(member.Board, true),
		Role:     member.Role,
		Points:   member.Points,
	}
}

func ToBoardMemberDTO(member models.BoardMember) BoardMemberDTO {
	return BoardMemberDTO{
		User:     ToUserSummaryDTO(member.User),
		Role:     member.Role,
		Points:   member.Points,
		JoinedAt: member.JoinedAt,
	}
}

func ToBoardDetailDTO(board models.Board, members []models.BoardMember, yourRole models.Role) BoardDetailDTO {
	memberDTOs := make([]BoardMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToBoardMemberDTO(member)
	}

	return BoardDetailDTO{
		BoardDTO: ToBoardDTO(board, true),
		Members:  memberDTOs,
		YourRole: yourRole,
	}
}
