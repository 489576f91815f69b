package models

import "time"

// PersonKind distinguishes in-house staff from hired freelancers.
type PersonKind string

const (
	KindStaff      PersonKind = "staff"
	KindFreelancer PersonKind = "freelancer"
)

// Role is a crew role on a shoot.
type Role string

const (
	RolePhotographer    Role = "photographer"
	RoleCinematographer Role = "cinematographer"
	RoleEditor          Role = "editor"
	RoleDronePilot      Role = "drone_pilot"
	RoleSameDayEditor   Role = "same_day_editor"
)

// AllRoles lists every crew role. Used for validation and reports.
var AllRoles = []Role{
	RolePhotographer,
	RoleCinematographer,
	RoleEditor,
	RoleDronePilot,
	RoleSameDayEditor,
}

// IsValidRole reports whether r is a known crew role.
func IsValidRole(r Role) bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Firm is a tenant: an isolated studio account. All data is partitioned
// by firm id and no query may cross firm boundaries.
type Firm struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a customer of a firm.
type Client struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firm_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Person is a staff member or freelancer of a firm, the unit of
// availability being checked. Staff and freelancers share a single id
// space, so the same person cannot be double-booked across categories.
type Person struct {
	ID        int64      `json:"id"`
	FirmID    int64      `json:"firm_id"`
	Name      string     `json:"name"`
	Kind      PersonKind `json:"kind"`
	Role      Role       `json:"role"` // default skill
	Phone     string     `json:"phone"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsFreelancer reports whether the person is an external freelancer.
func (p *Person) IsFreelancer() bool {
	return p.Kind == KindFreelancer
}
