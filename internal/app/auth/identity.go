package auth

import (
	"github.com/yigit/coursehub/internal/app/models"
)

// Identity is the authenticated principal for one request. It is passed
// explicitly into every operation; there is no ambient current user.
type Identity struct {
	UserID int64
	Role   models.RoleType
}

// Anonymous is the identity of a request without credentials.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity refers to a stored user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID > 0 && i.Role.Valid()
}

func (i Identity) IsAdmin() bool      { return i.IsAuthenticated() && i.Role == models.RoleAdmin }
func (i Identity) IsInstructor() bool { return i.IsAuthenticated() && i.Role == models.RoleInstructor }
func (i Identity) IsStudent() bool    { return i.IsAuthenticated() && i.Role == models.RoleStudent }
