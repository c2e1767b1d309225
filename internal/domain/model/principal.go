package model

// Principal is the caller identity handed to every use-case operation.
// It is derived from a verified token at the edge, never from global state.
type Principal struct {
	UserID  string
	IsAdmin bool
}

func (p Principal) IsZero() bool { return p.UserID == "" }

// CanAccess reports whether the principal may read or act on userID's data.
func (p Principal) CanAccess(userID string) bool {
	return p.IsAdmin || (p.UserID != "" && p.UserID == userID)
}
