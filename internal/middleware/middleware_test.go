package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"github.com/wemake-app/wemake-api/internal/testutil"
)

type stubParser struct {
	tokens map[string]string
}

func (p stubParser) ParseToken(token string) (string, error) {
	if id, ok := p.tokens[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	return router
}

func do(router http.Handler, method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	router := newRouter()
	router.POST("/login/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, c.Param("id"))
		require.NoError(t, session.Save())
		c.Status(http.StatusNoContent)
	})
	router.GET("/me", RequireAuth(stubParser{tokens: map[string]string{"good": "user-2"}}), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, userID)
	})

	w := do(router, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	login := do(router, http.MethodPost, "/login/user-1", nil)
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = do(router, http.MethodGet, "/me", func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", w.Body.String())

	w = do(router, http.MethodGet, "/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer good")
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-2", w.Body.String())

	w = do(router, http.MethodGet, "/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer bad")
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic good")
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer  abc ", token: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Token abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		require.Equal(t, tt.ok, ok, tt.header)
		require.Equal(t, tt.token, token, tt.header)
	}
}

type accessFixture struct {
	router *gin.Engine
	board  *models.Board
	task   *models.Task
	admin  *models.User
	member *models.User
	other  *models.User
}

func newAccessFixture(t *testing.T) *accessFixture {
	db := testutil.NewTestDB(t)
	boards := repository.NewBoardRepository(db)
	tasks := repository.NewTaskRepository(db)

	f := &accessFixture{
		admin:  testutil.CreateUser(t, db, "admin"),
		member: testutil.CreateUser(t, db, "member"),
		other:  testutil.CreateUser(t, db, "other"),
	}
	f.board = testutil.CreateBoard(t, db, "Home", "ABC123", f.admin)
	testutil.AddMember(t, db, f.board, f.member, models.RoleUser, 0)
	f.task = testutil.CreateTask(t, db, f.board, f.admin, "Dishes", f.member)

	parser := stubParser{tokens: map[string]string{
		"admin":  f.admin.ID,
		"member": f.member.ID,
		"other":  f.other.ID,
	}}

	f.router = newRouter()
	api := f.router.Group("/", RequireAuth(parser))
	api.GET("/boards/:id", RequireBoardAccess(boards), func(c *gin.Context) {
		board, ok := GetBoard(c)
		require.True(t, ok)
		member, ok := GetBoardMember(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"board": board.ID, "role": member.Role})
	})
	api.DELETE("/boards/:id", RequireBoardAccess(boards), RequireBoardAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	api.GET("/tasks/:id", RequireTaskAccess(tasks, boards), func(c *gin.Context) {
		task, ok := GetTask(c)
		require.True(t, ok)
		c.String(http.StatusOK, task.Title)
	})
	return f
}

func asUser(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestRequireBoardAccess(t *testing.T) {
	f := newAccessFixture(t)

	w := do(f.router, http.MethodGet, "/boards/"+f.board.ID, asUser("member"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"user"`)

	w = do(f.router, http.MethodGet, "/boards/"+f.board.ID, asUser("other"))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(f.router, http.MethodGet, "/boards/missing", asUser("admin"))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireBoardAdmin(t *testing.T) {
	f := newAccessFixture(t)

	w := do(f.router, http.MethodDelete, "/boards/"+f.board.ID, asUser("member"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "FORBIDDEN")

	w = do(f.router, http.MethodDelete, "/boards/"+f.board.ID, asUser("admin"))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireTaskAccess(t *testing.T) {
	f := newAccessFixture(t)

	w := do(f.router, http.MethodGet, "/tasks/"+f.task.ID, asUser("member"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dishes", w.Body.String())

	w = do(f.router, http.MethodGet, "/tasks/"+f.task.ID, asUser("other"))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(f.router, http.MethodGet, "/tasks/missing", asUser("member"))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserRateLimiter(t *testing.T) {
	limiter := NewUserRateLimiter(2)
	router := newRouter()
	router.POST("/voice", RequireAuth(stubParser{tokens: map[string]string{"a": "user-a", "b": "user-b"}}),
		limiter.Middleware(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/voice", asUser("a")).Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/voice", asUser("a")).Code)

	w := do(router, http.MethodPost, "/voice", asUser("a"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "RATE_LIMITED")

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/voice", asUser("b")).Code)
}
