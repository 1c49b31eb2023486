package domain

// Action is an operation subject to access control.
type Action int

const (
	ActionInfo Action = iota
	ActionExecute
	ActionUserList
	ActionUserRead
	ActionUserCreate
	ActionProfileUpdate
	ActionUserRoleChange
	ActionUserDelete
)

func (a Action) String() string {
	switch a {
	case ActionInfo:
		return "info"
	case ActionExecute:
		return "execute"
	case ActionUserList:
		return "user_list"
	case ActionUserRead:
		return "user_read"
	case ActionUserCreate:
		return "user_create"
	case ActionProfileUpdate:
		return "profile_update"
	case ActionUserRoleChange:
		return "user_role_change"
	case ActionUserDelete:
		return "user_delete"
	default:
		return "unknown"
	}
}

// AccessRequest carries the request attributes an access decision looks at.
type AccessRequest struct {
	RemoteAddr    string
	TargetLogin   string
	NewPermission string
}
