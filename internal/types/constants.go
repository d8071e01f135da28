package types

const (
	ContextUserKey      = "user"
	ContextRequestIDKey = "request_id"
	ContextClaimsKey    = "token_claims"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	ProjectStatusActive   = "active"
	ProjectStatusAlert    = "alert"
	ProjectStatusFinished = "finished"
)

const (
	DefaultPageSize    = 20
	MinPageSize        = 5
	MaxPageSize        = 100
	DefaultMyTaskLimit = 6
	MaxMyTaskLimit     = 50
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusActive, ProjectStatusAlert, ProjectStatusFinished:
		return true
	}
	return false
}
