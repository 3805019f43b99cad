package models

import "time"

// Role labels as carried in JWT claims. Identity itself is owned by an
// external service; only the yes/no role decision is consumed here.
const (
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// IsStaff reports whether the role may grade, override, and decide appeals.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleSuperadmin || role == RoleInstructor
}

// User is the minimal projection of the external identity record needed for
// relations and event payloads.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
