package repository

import (
	"github.com/wemake-app/wemake-api/internal/models"
	"gorm.io/gorm"
)

// GormProposalRepository is a GORM implementation of ProposalRepository
type GormProposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new ProposalRepository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &GormProposalRepository{db: db}
}

// Create creates a new proposal
func (r *GormProposalRepository) Create(proposal *models.TaskProposal) error {
	return r.db.Create(proposal).Error
}

// FindByID finds a proposal by ID
func (r *GormProposalRepository) FindByID(id string) (*models.TaskProposal, error) {
	var proposal models.TaskProposal
	if err := r.db.Where("id = ?", id).First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListByBoard lists a board's proposals, oldest first
func (r *GormProposalRepository) ListByBoard(boardID string) ([]models.TaskProposal, error) {
	var proposals []models.TaskProposal
	if err := r.db.Where("board_id = ? AND status = ?", boardID, models.ProposalAwaitingApproval).
		Order("proposed_at ASC").
		Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

// Approve creates the task and deletes the proposal in one transaction
func (r *GormProposalRepository) Approve(proposalID string, task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", proposalID).Delete(&models.TaskProposal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := bury(tx, proposalID, models.TombstoneProposal); err != nil {
			return err
		}
		return tx.Create(task).Error
	})
}

// Delete deletes a proposal and records its tombstone
func (r *GormProposalRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.TaskProposal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bury(tx, id, models.TombstoneProposal)
	})
}
