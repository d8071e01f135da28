package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tehokas/taskdeck/db"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestMain(m *testing.M) {
	logging.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var bg = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
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

	return conn
}

func createUser(t *testing.T, conn *gorm.DB, name, role string) *models.User {
	t.Helper()

	user := models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &user
}

func createProject(t *testing.T, conn *gorm.DB, name string, creator *models.User) *models.Project {
	t.Helper()

	project := models.Project{Name: name, Status: types.ProjectStatusActive, CreatedBy: creator.ID}
	if err := conn.Omit(clause.Associations).Create(&project).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return &project
}

func addMember(t *testing.T, conn *gorm.DB, project *models.Project, user *models.User) {
	t.Helper()

	membership := models.ProjectMembership{ProjectID: project.ID, UserID: user.ID}
	if err := conn.Omit(clause.Associations).Create(&membership).Error; err != nil {
		t.Fatalf("join %s to %s: %v", user.Name, project.Name, err)
	}
}

func createTask(t *testing.T, conn *gorm.DB, project *models.Project, title string, status taskstatus.Status, deadline string) *models.Task {
	t.Helper()

	date, err := models.ParseDate(deadline)
	if err != nil {
		t.Fatalf("parse deadline %s: %v", deadline, err)
	}

	task := models.Task{ProjectID: project.ID, Title: title, Status: status, Deadline: date}
	if err := conn.Omit(clause.Associations).Create(&task).Error; err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return &task
}

func activePointer(t *testing.T, conn *gorm.DB, user *models.User) *uint {
	t.Helper()

	var fresh models.User
	if err := conn.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return fresh.ActiveProjectID
}

func setPointer(t *testing.T, conn *gorm.DB, user *models.User, project *models.Project) {
	t.Helper()

	err := conn.Model(&models.User{}).Where("id = ?", user.ID).Update("active_project_id", project.ID).Error
	if err != nil {
		t.Fatalf("set pointer: %v", err)
	}
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }
