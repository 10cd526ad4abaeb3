package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrBoardNotFound              = errors.New("board not found")
	ErrInvalidBoardName           = errors.New("board name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invite code must be 6 letters or digits")
	ErrAlreadyMember              = errors.New("user is already a member of this board")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the board")
	ErrMemberNotFound             = errors.New("board member not found")
	ErrInvalidRole                = errors.New("invalid role")
	ErrLastAdmin                  = errors.New("the last admin cannot be demoted")
)

// BoardService provides business logic for boards and membership.
type BoardService struct {
	boardRepo repository.BoardRepository
	userRepo  repository.UserRepository
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

// NewBoardService creates a new BoardService.
func NewBoardService(boardRepo repository.BoardRepository, userRepo repository.UserRepository, publisher Publisher, notifier Notifier) *BoardService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BoardService{
		boardRepo: boardRepo,
		userRepo:  userRepo,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CreateBoardInput represents parameters to create a new board.
type CreateBoardInput struct {
	Name        string
	Description string
	Color       string
	CreatorID   string
}

// CreateBoard creates a board and makes the creator its first admin.
func (s *BoardService) CreateBoard(input CreateBoardInput) (*models.Board, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidBoardName
	}

	code, err := s.uniqueInviteCode()
	if err != nil {
		return nil, err
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = constants.DefaultBoardColor
	}

	board := &models.Board{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       color,
		InviteCode:  code,
		CreatedBy:   input.CreatorID,
	}
	admin := &models.BoardMember{
		UserID:   input.CreatorID,
		Role:     models.RoleAdmin,
		JoinedAt: s.now(),
	}

	if err := s.boardRepo.CreateWithAdmin(board, admin); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	return board, nil
}

// ListBoardsForUser returns the user's memberships with the boards preloaded.
func (s *BoardService) ListBoardsForUser(userID string) ([]models.BoardMember, error) {
	memberships, err := s.boardRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return memberships, nil
}

// GetBoardWithMembers returns a board and all of its members.
func (s *BoardService) GetBoardWithMembers(boardID string) (*models.Board, []models.BoardMember, error) {
	board, err := s.findBoard(boardID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.boardRepo.ListMembers(boardID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list board members: %w", err)
	}

	return board, members, nil
}

// UpdateBoardInput holds optional board field updates.
type UpdateBoardInput struct {
	Name        *string
	Description *string
	Color       *string
}

// UpdateBoard updates a board's name, description or color.
func (s *BoardService) UpdateBoard(boardID string, input UpdateBoardInput) (*models.Board, error) {
	board, err := s.findBoard(boardID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidBoardName
		}
		board.Name = name
	}
	if input.Description != nil {
		board.Description = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		if color := strings.TrimSpace(*input.Color); color != "" {
			board.Color = color
		}
	}

	if err := s.boardRepo.Update(board); err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}

	return board, nil
}

// DeleteBoard removes a board with its tasks, proposals, coupons and members.
func (s *BoardService) DeleteBoard(boardID string) error {
	if _, err := s.findBoard(boardID); err != nil {
		return err
	}

	if err := s.boardRepo.Delete(boardID); err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	s.publisher.Disconnect(boardID)
	return nil
}

// RegenerateInviteCode replaces the board's invite code.
func (s *BoardService) RegenerateInviteCode(boardID string) (*models.Board, error) {
	board, err := s.findBoard(boardID)
	if err != nil {
		return nil, err
	}

	code, err := s.uniqueInviteCode()
	if err != nil {
		return nil, err
	}

	board.InviteCode = code
	if err := s.boardRepo.Update(board); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return board, nil
}

// JoinBoardByInvite adds the user to the board owning the invite code.
// Each stage either passes the board along or stops with one error.
func (s *BoardService) JoinBoardByInvite(ctx context.Context, userID, rawCode string) (*models.Board, error) {
	code, ok := utils.NormalizeInviteCode(rawCode)
	if !ok {
		return nil, ErrInvalidInviteCode
	}

	board, err := s.boardRepo.FindByInviteCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to find board by invite code: %w", err)
	}

	if _, err := s.addMember(ctx, board, userID, models.RoleUser); err != nil {
		return nil, err
	}

	return board, nil
}

// AddMember adds an existing user to the board as a regular member.
func (s *BoardService) AddMember(ctx context.Context, boardID, userID string) (*models.BoardMember, error) {
	board, err := s.findBoard(boardID)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.addMember(ctx, board, userID, models.RoleUser)
}

// RemoveMember removes a member from the board.
func (s *BoardService) RemoveMember(boardID, actorID, targetID string) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	if _, err := s.findMember(boardID, targetID); err != nil {
		return err
	}

	if err := s.boardRepo.RemoveMember(boardID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.publisher.Disconnect(boardID, targetID)
	s.publisher.Publish(boardID, realtime.EventMemberRemoved, map[string]string{"user_id": targetID})
	return nil
}

// UpdateMemberRole changes a member's role. A board always keeps at least one admin.
func (s *BoardService) UpdateMemberRole(boardID, targetID string, role models.Role) (*models.BoardMember, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	member, err := s.findMember(boardID, targetID)
	if err != nil {
		return nil, err
	}
	if member.Role == role {
		return member, nil
	}

	if member.IsAdmin() && role != models.RoleAdmin {
		admins, err := s.boardRepo.CountAdmins(boardID)
		if err != nil {
			return nil, fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return nil, ErrLastAdmin
		}
	}

	if err := s.boardRepo.UpdateMemberRole(boardID, targetID, role); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	member.Role = role
	return member, nil
}

func (s *BoardService) addMember(ctx context.Context, board *models.Board, userID string, role models.Role) (*models.BoardMember, error) {
	if _, err := s.boardRepo.FindMember(board.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.BoardMember{
		BoardID:  board.ID,
		UserID:   userID,
		Role:     role,
		JoinedAt: s.now(),
	}
	if err := s.boardRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to board: %w", err)
	}

	s.publisher.Publish(board.ID, realtime.EventMemberJoined, member)
	notifyUser(ctx, s.userRepo, s.notifier, userID, Notification{
		Title: "¡Te han añadido a un tablero!",
		Body:  fmt.Sprintf("Has sido agregado al tablero '%s'.", board.Name),
		Data:  map[string]string{"board_id": board.ID, "type": "member_added"},
	})

	return member, nil
}

func (s *BoardService) uniqueInviteCode() (string, error) {
	for i := 0; i < constants.MaxInviteCodeAttempts; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", ErrInviteCodeGenerationFailed
		}

		taken, err := s.boardRepo.InviteCodeExists(code)
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrInviteCodeGenerationFailed
}

func (s *BoardService) findBoard(boardID string) (*models.Board, error) {
	board, err := s.boardRepo.FindByID(boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to find board: %w", err)
	}
	return board, nil
}

func (s *BoardService) findMember(boardID, userID string) (*models.BoardMember, error) {
	member, err := s.boardRepo.FindMember(boardID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find board member: %w", err)
	}
	return member, nil
}
