package protocol

// Action is a request tag understood by the server. The set is closed:
// dispatch happens over an exhaustive switch and anything outside it is
// answered with an "unknown action" failure.
type Action string

const (
	ActionLogin           Action = "LOGIN"
	ActionAdminListUsers  Action = "ADMIN_LIST_USERS"
	ActionAdminCreateUser Action = "ADMIN_CREATE_USER"
	ActionAdminSetStatus  Action = "ADMIN_SET_STATUS"
	ActionAdminEditUser   Action = "ADMIN_EDIT_USER"
	ActionAdminGetUser    Action = "ADMIN_GET_USER"
	ActionGetAudits       Action = "GET_AUDITS"
	ActionChangePassword  Action = "CHANGE_PASSWORD"
	ActionUpdateProfile   Action = "UPDATE_PROFILE"
	ActionPing            Action = "PING"
	ActionGetOnlineUsers  Action = "GET_ONLINE_USERS"
	ActionGetUserHistory  Action = "GET_USER_HISTORY"
)

var actions = map[string]Action{
	string(ActionLogin):           ActionLogin,
	string(ActionAdminListUsers):  ActionAdminListUsers,
	string(ActionAdminCreateUser): ActionAdminCreateUser,
	string(ActionAdminSetStatus):  ActionAdminSetStatus,
	string(ActionAdminEditUser):   ActionAdminEditUser,
	string(ActionAdminGetUser):    ActionAdminGetUser,
	string(ActionGetAudits):       ActionGetAudits,
	string(ActionChangePassword):  ActionChangePassword,
	string(ActionUpdateProfile):   ActionUpdateProfile,
	string(ActionPing):            ActionPing,
	string(ActionGetOnlineUsers):  ActionGetOnlineUsers,
	string(ActionGetUserHistory):  ActionGetUserHistory,
}

// ParseAction maps a raw tag to an Action, reporting whether the tag belongs
// to the closed set.
func ParseAction(tag string) (Action, bool) {
	a, ok := actions[tag]
	return a, ok
}
