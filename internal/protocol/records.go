package protocol

// DTO types serialized into response fields as compact JSON arrays/objects.
// Field names follow the wire contract, not Go conventions.

// UserRecord is one entry of the ADMIN_LIST_USERS payload.
type UserRecord struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	OnlineState string `json:"onlineState"`
}

// AuditRecord is one entry of the GET_AUDITS payload. Username resolves to
// "SYSTEM" when the audit row is not bound to a user.
type AuditRecord struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	CreatedAt string `json:"createdAt"`
}

// AttemptRecord is one login attempt in the GET_USER_HISTORY payload.
type AttemptRecord struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	AttemptTime   string `json:"attemptTime"`
	Success       bool   `json:"success"`
	SourceAddress string `json:"sourceAddress"`
}

// History is the GET_USER_HISTORY payload: login attempts plus audit entries
// for one username.
type History struct {
	Attempts []AttemptRecord `json:"attempts"`
	Audits   []AuditRecord   `json:"audits"`
}
