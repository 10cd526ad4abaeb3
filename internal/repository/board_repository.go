package repository

import (
	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// GormBoardRepository is a GORM implementation of BoardRepository
type GormBoardRepository struct {
	db *gorm.DB
}

// NewBoardRepository creates a new BoardRepository
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &GormBoardRepository{db: db}
}

// CreateWithAdmin creates a board and its first admin member atomically
func (r *GormBoardRepository) CreateWithAdmin(board *models.Board, admin *models.BoardMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}

		admin.BoardID = board.ID
		return tx.Create(admin).Error
	})
}

// FindByID finds a board by ID
func (r *GormBoardRepository) FindByID(id string) (*models.Board, error) {
	var board models.Board
	if err := r.db.Where("id = ?", id).First(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// FindByInviteCode finds a board by invite code
func (r *GormBoardRepository) FindByInviteCode(code string) (*models.Board, error) {
	var board models.Board
	if err := r.db.Where("invite_code = ?", code).First(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// InviteCodeExists reports whether a code is already taken
func (r *GormBoardRepository) InviteCodeExists(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Board{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates a board
func (r *GormBoardRepository) Update(board *models.Board) error {
	return r.db.Model(board).Select("name", "description", "color", "invite_code").Updates(board).Error
}

// Delete deletes a board and all related data in a transaction
func (r *GormBoardRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		boardTaskIDs := func() *gorm.DB {
			return tx.Model(&models.Task{}).Select("id").Where("board_id = ?", id)
		}

		if err := tx.Where("task_id IN (?)", boardTaskIDs()).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN (?)", boardTaskIDs()).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{
			&models.Task{},
			&models.TaskProposal{},
			&models.RedemptionRequest{},
			&models.Coupon{},
			&models.BoardMember{},
		} {
			if err := tx.Where("board_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", id).Delete(&models.Board{}).Error
	})
}

// AddMember adds a member to a board
func (r *GormBoardRepository) AddMember(member *models.BoardMember) error {
	return r.db.Create(member).Error
}

// RemoveMember removes a member and their task assignments on the board
func (r *GormBoardRepository) RemoveMember(boardID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("board_id = ?", boardID)
		if err := tx.Where("user_id = ? AND task_id IN (?)", userID, taskIDs).
			Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		return tx.Where("board_id = ? AND user_id = ?", boardID, userID).
			Delete(&models.BoardMember{}).Error
	})
}

// UpdateMemberRole changes a member's role
func (r *GormBoardRepository) UpdateMemberRole(boardID, userID string, role models.Role) error {
	return r.db.Model(&models.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Update("role", role).Error
}

// FindMember finds a specific board member
func (r *GormBoardRepository) FindMember(boardID, userID string) (*models.BoardMember, error) {
	var member models.BoardMember
	if err := r.db.Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembersByUserID lists all boards a user is a member of
func (r *GormBoardRepository) ListMembersByUserID(userID string) ([]models.BoardMember, error) {
	var memberships []models.BoardMember
	if err := r.db.Preload("Board").
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all members of a board
func (r *GormBoardRepository) ListMembers(boardID string) ([]models.BoardMember, error) {
	var members []models.BoardMember
	if err := r.db.Preload("User").
		Where("board_id = ?", boardID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountMembers counts how many of userIDs belong to the board
func (r *GormBoardRepository) CountMembers(boardID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.BoardMember{}).
		Where("board_id = ? AND user_id IN ?", boardID, userIDs).
		Count(&count).Error
	return count, err
}

// CountAdmins counts the admins of a board
func (r *GormBoardRepository) CountAdmins(boardID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.BoardMember{}).
		Where("board_id = ? AND role = ?", boardID, models.RoleAdmin).
		Count(&count).Error
	return count, err
}
