package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Options struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string

	// Demo adds a member account and two sample projects with tasks.
	Demo         bool
	DemoPassword string
}

type Result struct {
	AdminID        uint
	AdminCreated   bool
	DemoMemberID   uint
	DemoProjectIDs []uint
}

// Run is idempotent: users are matched by email and projects by name, so
// running it twice creates nothing new.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	if opts.AdminEmail == "" || len(opts.AdminPassword) < 8 {
		return nil, fmt.Errorf("seed admin needs an email and a password of at least 8 characters")
	}

	result := &Result{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, created, err := ensureUser(tx, opts.AdminName, opts.AdminEmail, opts.AdminPassword, types.RoleAdmin)
		if err != nil {
			return err
		}
		result.AdminID = admin.ID
		result.AdminCreated = created

		if !opts.Demo {
			return nil
		}

		password := opts.DemoPassword
		if password == "" {
			password = opts.AdminPassword
		}

		member, _, err := ensureUser(tx, "Demo Member", "member@taskdeck.local", password, types.RoleMember)
		if err != nil {
			return err
		}
		result.DemoMemberID = member.ID

		for _, sample := range sampleProjects() {
			project, err := ensureProject(tx, sample, admin.ID, member.ID)
			if err != nil {
				return err
			}
			result.DemoProjectIDs = append(result.DemoProjectIDs, project.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.WithFields(logrus.Fields{
		"admin_id":      result.AdminID,
		"admin_created": result.AdminCreated,
		"demo":          opts.Demo,
	}).Info("seed completed")

	return result, nil
}

func ensureUser(tx *gorm.DB, name, email, password, role string) (*models.User, bool, error) {
	var user models.User

	res := tx.Where("email = ?", email).Limit(1).Find(&user)
	if res.Error != nil {
		return nil, false, fmt.Errorf("load user %s: %w", email, res.Error)
	}
	if res.RowsAffected > 0 {
		return &user, false, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user = models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", email, err)
	}

	return &user, true, nil
}

type sampleTask struct {
	title  string
	status taskstatus.Status
	inDays int
}

type sampleProject struct {
	name   string
	status string
	join   bool
	tasks  []sampleTask
}

func sampleProjects() []sampleProject {
	return []sampleProject{
		{
			name:   "Alpha Launch",
			status: types.ProjectStatusActive,
			join:   true,
			tasks: []sampleTask{
				{"Write release notes", taskstatus.Pending, 3},
				{"Prepare staging environment", taskstatus.InProgress, 1},
				{"Agree on launch date", taskstatus.Done, -2},
			},
		},
		{
			name:   "Beta Research",
			status: types.ProjectStatusAlert,
			tasks: []sampleTask{
				{"Interview pilot customers", taskstatus.Pending, 7},
				{"Summarise survey results", taskstatus.Pending, -1},
			},
		},
	}
}

func ensureProject(tx *gorm.DB, sample sampleProject, adminID, memberID uint) (*models.Project, error) {
	var project models.Project

	res := tx.Where("name = ?", sample.name).Limit(1).Find(&project)
	if res.Error != nil {
		return nil, fmt.Errorf("load project %s: %w", sample.name, res.Error)
	}
	if res.RowsAffected > 0 {
		return &project, nil
	}

	project = models.Project{Name: sample.name, Status: sample.status, CreatedBy: adminID}
	if err := tx.Omit(clause.Associations).Create(&project).Error; err != nil {
		return nil, fmt.Errorf("create project %s: %w", sample.name, err)
	}

	if sample.join {
		membership := models.ProjectMembership{ProjectID: project.ID, UserID: memberID}
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&membership).Error
		if err != nil {
			return nil, fmt.Errorf("join project %s: %w", sample.name, err)
		}
	}

	y, m, d := time.Now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	for _, st := range sample.tasks {
		task := models.Task{
			ProjectID: project.ID,
			Title:     st.title,
			Status:    st.status,
			Deadline:  datatypes.Date(today.AddDate(0, 0, st.inDays)),
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return nil, fmt.Errorf("create task %q: %w", st.title, err)
		}
	}

	return &project, nil
}
