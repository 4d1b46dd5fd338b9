package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's learning level, or ADMIN.
type Role string

const (
	RoleBeginner     Role = "BEGINNER"
	RoleIntermediate Role = "INTERMEDIATE"
	RoleAdvanced     Role = "ADVANCED"
	RoleInstructor   Role = "INSTRUCTOR"
	RoleAdmin        Role = "ADMIN"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleBeginner, RoleIntermediate, RoleAdvanced, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// SelfAssignable reports whether r can be chosen at registration.
func (r Role) SelfAssignable() bool {
	return r.Valid() && r != RoleAdmin
}

// UserStatus is the admin approval state of an account.
type UserStatus string

const (
	StatusPending  UserStatus = "PENDING"
	StatusApproved UserStatus = "APPROVED"
	StatusRejected UserStatus = "REJECTED"
)

// Valid reports whether s is a recognized status.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	Name      *string    `json:"name"`
	Phone     *string    `json:"phone"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      *string    `json:"name"`
	Phone     *string    `json:"phone"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
