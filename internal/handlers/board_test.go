package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/wemake-app/wemake-api/internal/dto"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/testutil"
)

// BoardHandlerTestSuite defines the test suite for BoardHandler
type BoardHandlerTestSuite struct {
	suite.Suite
	env   *handlerEnv
	setup *boardSetup
}

// SetupTest runs before each test
func (suite *BoardHandlerTestSuite) SetupTest() {
	suite.env = newHandlerEnv(suite.T())
	suite.setup = suite.env.newBoard(suite.T())
}

func (suite *BoardHandlerTestSuite) path(rest string) string {
	return "/api/boards/" + suite.setup.board.ID + rest
}

func (suite *BoardHandlerTestSuite) TestCreateBoard() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/boards", map[string]string{
		"name":  "  Flat 4B ",
		"color": "#AABBCC",
	}, suite.setup.worker)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.BoardWithRoleDTO
	decode(suite.T(), w, &response)
	suite.Equal("Flat 4B", response.Name)
	suite.Equal(models.RoleAdmin, response.Role)
	suite.Len(response.InviteCode, 6)
}

func (suite *BoardHandlerTestSuite) TestCreateBoard_MissingName() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/boards", map[string]string{"color": "#fff"}, suite.setup.worker)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *BoardHandlerTestSuite) TestListBoards() {
	w := suite.env.do(suite.T(), http.MethodGet, "/api/boards", nil, suite.setup.worker)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Boards []dto.BoardWithRoleDTO `json:"boards"`
	}
	decode(suite.T(), w, &response)
	suite.Require().Len(response.Boards, 1)
	suite.Equal(suite.setup.board.ID, response.Boards[0].ID)
	suite.Equal(models.RoleUser, response.Boards[0].Role)
}

func (suite *BoardHandlerTestSuite) TestGetBoard() {
	w := suite.env.do(suite.T(), http.MethodGet, suite.path(""), nil, suite.setup.worker)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.BoardDetailDTO
	decode(suite.T(), w, &response)
	suite.Len(response.Members, 3)
	suite.Equal(models.RoleUser, response.YourRole)
}

func (suite *BoardHandlerTestSuite) TestGetBoard_NonMember() {
	outsider := testutil.CreateUser(suite.T(), suite.env.db, "outsider")

	w := suite.env.do(suite.T(), http.MethodGet, suite.path(""), nil, outsider)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *BoardHandlerTestSuite) TestUpdateBoard_AdminOnly() {
	w := suite.env.do(suite.T(), http.MethodPut, suite.path(""), map[string]string{"name": "Renamed"}, suite.setup.worker)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(suite.T(), http.MethodPut, suite.path(""), map[string]string{"name": "Renamed"}, suite.setup.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.BoardDTO
	decode(suite.T(), w, &response)
	suite.Equal("Renamed", response.Name)
}

func (suite *BoardHandlerTestSuite) TestRegenerateInviteCode() {
	w := suite.env.do(suite.T(), http.MethodPost, suite.path("/regenerate-code"), nil, suite.setup.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.BoardDTO
	decode(suite.T(), w, &response)
	suite.Len(response.InviteCode, 6)
	suite.NotEqual("ABC123", response.InviteCode)
}

func (suite *BoardHandlerTestSuite) TestJoinBoard() {
	newcomer := testutil.CreateUser(suite.T(), suite.env.db, "newcomer")

	w := suite.env.do(suite.T(), http.MethodPost, "/api/boards/join", map[string]string{"invite_code": " abc123 "}, newcomer)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.BoardWithRoleDTO
	decode(suite.T(), w, &response)
	suite.Equal(suite.setup.board.ID, response.ID)
	suite.Equal(models.RoleUser, response.Role)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/boards/join", map[string]string{"invite_code": "ABC123"}, newcomer)
	suite.Equal(http.StatusConflict, w.Code)
	var body errorBody
	decode(suite.T(), w, &body)
	suite.Equal(apierrors.ErrCodeAlreadyMember, body.Code)
}

func (suite *BoardHandlerTestSuite) TestJoinBoard_UnknownCode() {
	newcomer := testutil.CreateUser(suite.T(), suite.env.db, "newcomer")

	w := suite.env.do(suite.T(), http.MethodPost, "/api/boards/join", map[string]string{"invite_code": "ZZZZZZ"}, newcomer)
	suite.Equal(http.StatusNotFound, w.Code)
	var body errorBody
	decode(suite.T(), w, &body)
	suite.Equal(apierrors.ErrCodeBoardNotFound, body.Code)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/boards/join", map[string]string{"invite_code": "12"}, newcomer)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *BoardHandlerTestSuite) TestAddMember() {
	friend := testutil.CreateUser(suite.T(), suite.env.db, "friend")

	w := suite.env.do(suite.T(), http.MethodPost, suite.path("/members"), map[string]string{"user_id": friend.ID}, suite.setup.admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.env.do(suite.T(), http.MethodPost, suite.path("/members"), map[string]string{"user_id": "missing"}, suite.setup.admin)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *BoardHandlerTestSuite) TestRemoveMember() {
	w := suite.env.do(suite.T(), http.MethodDelete, suite.path("/members/"+suite.setup.admin.ID), nil, suite.setup.admin)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.env.do(suite.T(), http.MethodDelete, suite.path("/members/"+suite.setup.worker.ID), nil, suite.setup.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, suite.path(""), nil, suite.setup.worker)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *BoardHandlerTestSuite) TestUpdateMemberRole() {
	w := suite.env.do(suite.T(), http.MethodPut, suite.path("/members/"+suite.setup.worker.ID+"/role"),
		map[string]string{"role": "admin"}, suite.setup.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.env.do(suite.T(), http.MethodPut, suite.path("/members/"+suite.setup.worker.ID+"/role"),
		map[string]string{"role": "owner"}, suite.setup.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *BoardHandlerTestSuite) TestDeleteBoard() {
	w := suite.env.do(suite.T(), http.MethodDelete, suite.path(""), nil, suite.setup.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, suite.path(""), nil, suite.setup.admin)
	suite.Equal(http.StatusNotFound, w.Code)
}

func TestBoardHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(BoardHandlerTestSuite))
}
