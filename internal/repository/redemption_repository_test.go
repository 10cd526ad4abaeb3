package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/testutil"
	"gorm.io/gorm"
)

type RedemptionRepositorySuite struct {
	suite.Suite
	db     *gorm.DB
	repo   RedemptionRepository
	board  *models.Board
	member *models.User
}

func (s *RedemptionRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = NewRedemptionRepository(s.db)

	admin := testutil.CreateUser(s.T(), s.db, "admin")
	s.member = testutil.CreateUser(s.T(), s.db, "member")
	s.board = testutil.CreateBoard(s.T(), s.db, "Home", "ABC123", admin)
	testutil.AddMember(s.T(), s.db, s.board, s.member, models.RoleUser, 100)
}

func (s *RedemptionRepositorySuite) request(cost int64) *models.RedemptionRequest {
	return &models.RedemptionRequest{
		BoardID:     s.board.ID,
		UserID:      s.member.ID,
		CouponID:    "coupon-1",
		CouponTitle: "Movie night",
		Cost:        cost,
		RequestedAt: time.Now(),
	}
}

func (s *RedemptionRepositorySuite) TestRedeemDebitsBalance() {
	req := s.request(80)
	s.Require().NoError(s.repo.Redeem(req))
	s.Equal(models.RedemptionPending, req.Status)
	s.Equal(int64(20), testutil.Points(s.T(), s.db, s.board.ID, s.member.ID))
}

func (s *RedemptionRepositorySuite) TestRedeemRejectsInsufficientBalance() {
	err := s.repo.Redeem(s.request(120))
	s.ErrorIs(err, ErrInsufficientPoints)
	s.Equal(int64(100), testutil.Points(s.T(), s.db, s.board.ID, s.member.ID))

	requests, total, err := s.repo.List(RedemptionFilter{BoardID: s.board.ID})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(requests)
}

func (s *RedemptionRepositorySuite) TestRedeemUnknownMember() {
	req := s.request(10)
	req.UserID = "stranger"
	s.ErrorIs(s.repo.Redeem(req), gorm.ErrRecordNotFound)
}

func (s *RedemptionRepositorySuite) TestDenyRefundsSnapshotOnce() {
	req := s.request(80)
	s.Require().NoError(s.repo.Redeem(req))

	s.Require().NoError(s.repo.Deny(req.ID, "admin", time.Now()))
	s.Equal(int64(100), testutil.Points(s.T(), s.db, s.board.ID, s.member.ID))

	s.ErrorIs(s.repo.Deny(req.ID, "admin", time.Now()), ErrNotPending)
	s.ErrorIs(s.repo.Approve(req.ID, "admin", time.Now()), ErrNotPending)
	s.Equal(int64(100), testutil.Points(s.T(), s.db, s.board.ID, s.member.ID))

	stored, err := s.repo.FindByID(req.ID)
	s.Require().NoError(err)
	s.Equal(models.RedemptionDenied, stored.Status)
	s.Equal("admin", stored.ProcessedBy)
	s.NotNil(stored.ProcessedAt)
}

func (s *RedemptionRepositorySuite) TestDenyKeepsRequestPendingWhenRequesterLeft() {
	req := s.request(40)
	s.Require().NoError(s.repo.Redeem(req))
	s.Require().NoError(s.db.Where("board_id = ? AND user_id = ?", s.board.ID, s.member.ID).
		Delete(&models.BoardMember{}).Error)

	s.ErrorIs(s.repo.Deny(req.ID, "admin", time.Now()), ErrRequesterNotMember)

	stored, err := s.repo.FindByID(req.ID)
	s.Require().NoError(err)
	s.Equal(models.RedemptionPending, stored.Status)
	s.Empty(stored.ProcessedBy)
}

func (s *RedemptionRepositorySuite) TestApproveKeepsDebit() {
	req := s.request(30)
	s.Require().NoError(s.repo.Redeem(req))
	s.Require().NoError(s.repo.Approve(req.ID, "admin", time.Now()))
	s.Equal(int64(70), testutil.Points(s.T(), s.db, s.board.ID, s.member.ID))
}

func (s *RedemptionRepositorySuite) TestListFilters() {
	first := s.request(10)
	second := s.request(20)
	s.Require().NoError(s.repo.Redeem(first))
	s.Require().NoError(s.repo.Redeem(second))
	s.Require().NoError(s.repo.Approve(first.ID, "admin", time.Now()))

	pending := models.RedemptionPending
	requests, total, err := s.repo.List(RedemptionFilter{BoardID: s.board.ID, Status: &pending, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(requests, 1)
	s.Equal(second.ID, requests[0].ID)

	other := "someone-else"
	_, total, err = s.repo.List(RedemptionFilter{BoardID: s.board.ID, UserID: &other})
	s.Require().NoError(err)
	s.Zero(total)
}

func TestRedemptionRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedemptionRepositorySuite))
}
