package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/realtime"
	"github.com/wemake-app/wemake-api/internal/repository"
	"gorm.io/gorm"
)

var ErrProposalNotFound = errors.New("proposal not found")

// ProposalService handles admin decisions on task proposals.
type ProposalService struct {
	proposalRepo repository.ProposalRepository
	taskRepo     repository.TaskRepository
	outbox       TaskOutbox
	publisher    Publisher
}

// NewProposalService creates a new ProposalService.
func NewProposalService(proposalRepo repository.ProposalRepository, taskRepo repository.TaskRepository, outbox TaskOutbox, publisher Publisher) *ProposalService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &ProposalService{
		proposalRepo: proposalRepo,
		taskRepo:     taskRepo,
		outbox:       outbox,
		publisher:    publisher,
	}
}

// ListProposals returns the board's proposals awaiting approval, oldest first.
func (s *ProposalService) ListProposals(boardID string) ([]models.TaskProposal, error) {
	proposals, err := s.proposalRepo.ListByBoard(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

// ApproveProposalInput carries optional point overrides for the new task.
type ApproveProposalInput struct {
	RewardPoints  *int64
	PenaltyPoints *int64
}

// ApproveProposal turns the proposal into a task with the same id.
func (s *ProposalService) ApproveProposal(ctx context.Context, boardID, proposalID string, input ApproveProposalInput) (*models.Task, error) {
	proposal, err := s.findProposal(boardID, proposalID)
	if err != nil {
		return nil, err
	}

	task := proposal.ToTask()
	if input.RewardPoints != nil {
		task.RewardPoints = *input.RewardPoints
	}
	if input.PenaltyPoints != nil {
		task.PenaltyPoints = *input.PenaltyPoints
	}
	if task.RewardPoints < 0 || task.PenaltyPoints < 0 {
		return nil, ErrInvalidPoints
	}

	if err := s.proposalRepo.Approve(proposal.ID, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to approve proposal: %w", err)
	}

	created, err := s.taskRepo.FindByID(task.ID, "Assignments", "Subtasks")
	if err != nil {
		return nil, fmt.Errorf("failed to load approved task: %w", err)
	}
	if err := s.outbox.Promote(ctx, localcache.FromTask(created)); err != nil {
		log.Printf("Failed to queue approved task %s for the mirrors: %v", created.ID, err)
	}

	s.publisher.Publish(boardID, realtime.EventProposalResolved, map[string]interface{}{
		"id":       proposal.ID,
		"approved": true,
	})
	s.publisher.Publish(boardID, realtime.EventTaskCreated, created)
	return created, nil
}

// DenyProposal discards the proposal.
func (s *ProposalService) DenyProposal(ctx context.Context, boardID, proposalID string) error {
	proposal, err := s.findProposal(boardID, proposalID)
	if err != nil {
		return err
	}

	if err := s.proposalRepo.Delete(proposal.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProposalNotFound
		}
		return fmt.Errorf("failed to deny proposal: %w", err)
	}
	if err := s.outbox.MarkDeleted(ctx, proposal.ID, proposal.BoardID, true); err != nil {
		log.Printf("Failed to queue denied proposal %s for the mirrors: %v", proposal.ID, err)
	}

	s.publisher.Publish(boardID, realtime.EventProposalResolved, map[string]interface{}{
		"id":       proposal.ID,
		"approved": false,
	})
	return nil
}

func (s *ProposalService) findProposal(boardID, proposalID string) (*models.TaskProposal, error) {
	proposal, err := s.proposalRepo.FindByID(proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to find proposal: %w", err)
	}
	if proposal.BoardID != boardID {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}
