package services

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Services bundles the domain operations the HTTP layer calls into.
type Services struct {
	Accounts  *Accounts
	Access    *AccessPolicy
	Active    *ActiveProjectSelector
	Board     *TaskBoard
	Projects  *ProjectAdmin
	Users     *UserAdmin
	Dashboard *Dashboard
}

func New(db *gorm.DB) *Services {
	access := NewAccessPolicy(db)
	active := NewActiveProjectSelector(db, access)
	board := NewTaskBoard(db, access, active)

	return &Services{
		Accounts:  NewAccounts(db),
		Access:    access,
		Active:    active,
		Board:     board,
		Projects:  NewProjectAdmin(db, access),
		Users:     NewUserAdmin(db, active),
		Dashboard: NewDashboard(db, access, active, board),
	}
}

// UserSummary is the short user shape embedded in project listings.
type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func selectUserSummary(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name")
}

// today is the current calendar date pinned to midnight UTC, the same shape
// deadlines are stored in.
func today(now func() time.Time) time.Time {
	y, m, d := now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const likeEscape = "!"

func escapeLike(value string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(value)
}

// matching filters on a case-insensitive substring of any of the columns.
func matching(search string, columns ...string) func(*gorm.DB) *gorm.DB {
	search = strings.TrimSpace(search)

	return func(tx *gorm.DB) *gorm.DB {
		if search == "" || len(columns) == 0 {
			return tx
		}

		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]interface{}, 0, len(columns))

		for _, column := range columns {
			clauses = append(clauses, "LOWER("+column+") LIKE ? ESCAPE '"+likeEscape+"'")
			args = append(args, pattern)
		}

		return tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}
