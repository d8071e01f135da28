package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/db"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/handlers"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/middleware"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const testPassword = "correct horse"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	engine *gin.Engine
	conn   *gorm.DB
}

func newTestServer(t *testing.T, ping func(context.Context) error) *testServer {
	t.Helper()

	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "taskdeck.db")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.MigrateDatabase(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := auth.NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	revocations := auth.NewMemoryStore()
	svc := services.New(conn)

	engine := NewRouter(Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		Tokens:         tokens,
		Revocations:    revocations,
		Services:       svc,
		Handler:        handlers.New(svc, tokens, revocations, handlers.CookieSettings{}, ping),
	})

	return &testServer{engine: engine, conn: conn}
}

func (s *testServer) createUser(t *testing.T, name, email, role string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func (s *testServer) createProject(t *testing.T, name string, creator *models.User, members ...*models.User) *models.Project {
	t.Helper()

	project := models.Project{Name: name, Status: types.ProjectStatusActive, CreatedBy: creator.ID}
	if err := s.conn.Omit(clause.Associations).Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	for _, member := range members {
		membership := models.ProjectMembership{ProjectID: project.ID, UserID: member.ID}
		if err := s.conn.Omit(clause.Associations).Create(&membership).Error; err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	return &project
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()

	rec := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func path(parts ...interface{}) string {
	out := ""
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			out += v
		case uint:
			out += strconv.FormatUint(uint64(v), 10)
		}
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		ping       func(context.Context) error
		wantStatus int
		wantBody   string
	}{
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"database down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.ping)

			rec := s.do(http.MethodGet, "/api/health", "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			decode(t, rec, &body)
			if body["status"] != tt.wantBody {
				t.Errorf("status field = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	rec = s.do(http.MethodGet, "/api/health", "", nil)
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.createUser(t, "Mia", "mia@example.com", types.RoleMember)

	rec := s.do(http.MethodGet, "/api/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: status %d, want 401", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "mia@example.com", "password": "wrong"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad password: status %d, want 400", rec.Code)
	}

	token := s.login(t, "mia@example.com")

	rec = s.do(http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", rec.Code, rec.Body.String())
	}

	var me struct {
		User types.UserResponse `json:"user"`
	}
	decode(t, rec, &me)
	if me.User.Email != "mia@example.com" || me.User.Role != types.RoleMember {
		t.Errorf("me = %+v", me.User)
	}

	rec = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d, want 401", rec.Code)
	}
}

func TestActiveProjectSelection(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.createUser(t, "Admin", "admin@example.com", types.RoleAdmin)
	mia := s.createUser(t, "Mia", "mia@example.com", types.RoleMember)

	shared := s.createProject(t, "Shared", admin, mia)
	private := s.createProject(t, "Private", admin)

	token := s.login(t, "mia@example.com")

	rec := s.do(http.MethodPut, "/api/active-project", token, gin.H{"project_id": private.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign project: status %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodPut, "/api/active-project", token, gin.H{"project_id": 9999})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing project: status %d, want 403 for a member", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/active-project", token, gin.H{"project_id": private.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign project via POST: status %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/active-project", token, gin.H{"project_id": shared.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("shared project via POST: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPut, "/api/active-project", token, gin.H{"project_id": shared.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("shared project: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/active-project", token, nil)
	var active struct {
		ActiveProject *handlers.ProjectResponse `json:"active_project"`
	}
	decode(t, rec, &active)
	if active.ActiveProject == nil || active.ActiveProject.ID != shared.ID {
		t.Fatalf("active project = %+v", active.ActiveProject)
	}

	rec = s.do(http.MethodPut, "/api/active-project", token, gin.H{"project_id": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: status %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/active-project", token, nil)
	decode(t, rec, &active)
	if active.ActiveProject != nil {
		t.Errorf("active project after clear = %+v", active.ActiveProject)
	}
}

func TestBoardAndTransitions(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.createUser(t, "Admin", "admin@example.com", types.RoleAdmin)
	mia := s.createUser(t, "Mia", "mia@example.com", types.RoleMember)
	s.createUser(t, "Otto", "otto@example.com", types.RoleMember)

	project := s.createProject(t, "Apollo", admin, mia)

	token := s.login(t, "mia@example.com")
	outsider := s.login(t, "otto@example.com")

	rec := s.do(http.MethodGet, "/api/active-project/board", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty board: status %d", rec.Code)
	}
	var board handlers.BoardResponse
	decode(t, rec, &board)
	if board.Project != nil || board.Stats.Total != 0 || board.Progress != 0 {
		t.Errorf("empty board = %+v", board)
	}

	rec = s.do(http.MethodPost, "/api/tasks", token, gin.H{
		"project_id": project.ID,
		"title":      "Write docs",
		"deadline":   "2025-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Task handlers.TaskResponse `json:"task"`
	}
	decode(t, rec, &created)
	if created.Task.Status != "pending" || created.Task.Deadline != "2025-03-01" {
		t.Errorf("created task = %+v", created.Task)
	}

	rec = s.do(http.MethodPost, "/api/tasks", token, gin.H{"project_id": project.ID, "title": "", "deadline": "soon"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid task: status %d, want 422", rec.Code)
	}

	rec = s.do(http.MethodPut, "/api/active-project", token, gin.H{"project_id": project.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("select project: status %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/active-project/board", token, nil)
	decode(t, rec, &board)
	if board.Project == nil || board.Project.ID != project.ID {
		t.Fatalf("board project = %+v", board.Project)
	}
	if len(board.TasksByStatus.Pending) != 1 || board.Stats.Total != 1 || board.Stats.Pending != 1 {
		t.Errorf("board = %+v", board)
	}

	taskPath := path("/api/tasks/", created.Task.ID, "/status")

	rec = s.do(http.MethodPut, taskPath, token, gin.H{"status": "archived"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status: status %d, want 422", rec.Code)
	}

	rec = s.do(http.MethodPut, taskPath, outsider, gin.H{"status": "done"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("outsider transition: status %d, want 404", rec.Code)
	}

	rec = s.do(http.MethodPut, taskPath, token, gin.H{"status": "done"})
	if rec.Code != http.StatusOK {
		t.Fatalf("transition: status %d body %s", rec.Code, rec.Body.String())
	}
	var moved struct {
		Task     handlers.TaskResponse `json:"task"`
		Stats    services.Stats        `json:"stats"`
		Progress int                   `json:"progress"`
	}
	decode(t, rec, &moved)
	if moved.Task.Status != "done" || moved.Stats.Done != 1 || moved.Progress != 100 {
		t.Errorf("transition response = %+v", moved)
	}

	rec = s.do(http.MethodGet, path("/api/projects/", project.ID, "/board"), outsider, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider board: status %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodGet, path("/api/projects/", project.ID, "/my-tasks?limit=1"), token, nil)
	var mine struct {
		Tasks []handlers.TaskResponse `json:"tasks"`
	}
	decode(t, rec, &mine)
	if len(mine.Tasks) != 1 || mine.Tasks[0].ID != created.Task.ID {
		t.Errorf("my tasks = %+v", mine.Tasks)
	}

	rec = s.do(http.MethodDelete, path("/api/tasks/", created.Task.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete task: status %d", rec.Code)
	}
	rec = s.do(http.MethodDelete, path("/api/tasks/", created.Task.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	s.createUser(t, "Admin", "admin@example.com", types.RoleAdmin)
	mia := s.createUser(t, "Mia", "mia@example.com", types.RoleMember)

	adminToken := s.login(t, "admin@example.com")
	memberToken := s.login(t, "mia@example.com")

	rec := s.do(http.MethodPost, "/api/projects", memberToken, gin.H{"name": "Sneaky"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("member create project: status %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/projects", adminToken, gin.H{"name": "Apollo"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Project handlers.ProjectResponse `json:"project"`
	}
	decode(t, rec, &created)

	rec = s.do(http.MethodPost, path("/api/projects/", created.Project.ID, "/members"), adminToken, gin.H{"user_id": mia.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("add member: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/accessible-projects", memberToken, nil)
	var accessible types.Page[services.ProjectListItem]
	decode(t, rec, &accessible)
	if accessible.Total != 1 || accessible.Items[0].ID != created.Project.ID {
		t.Errorf("accessible = %+v", accessible)
	}

	rec = s.do(http.MethodGet, "/api/accessible-projects?page_size=2", memberToken, nil)
	decode(t, rec, &accessible)
	if accessible.PageSize != types.MinPageSize {
		t.Errorf("page_size=2 served page size %d, want %d", accessible.PageSize, types.MinPageSize)
	}

	rec = s.do(http.MethodDelete, path("/api/projects/", created.Project.ID), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete project: status %d", rec.Code)
	}

	rec = s.do(http.MethodGet, path("/api/projects/", created.Project.ID, "/board"), adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted project board: status %d, want 404", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/users", memberToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member list users: status %d, want 403", rec.Code)
	}
}
