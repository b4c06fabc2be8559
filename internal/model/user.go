package model

import (
	"time"
)

// User status values
const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
	UserStatusLocked   = "LOCKED"
)

// User is a back-office operator. Roles drive the authority set.
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Username            string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash        string     `gorm:"type:varchar(255);not null" json:"-"` // bcrypt
	Email               string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	FullName            string     `gorm:"type:varchar(100);not null" json:"fullName"`
	FullNameCn          string     `gorm:"type:varchar(100)" json:"fullNameCn,omitempty"`
	Phone               string     `gorm:"type:varchar(20)" json:"phone,omitempty"`
	EmployeeID          string     `gorm:"type:varchar(20)" json:"employeeId,omitempty"`
	BranchID            *uint      `gorm:"index" json:"branchId,omitempty"`
	Branch              *Branch    `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Status              string     `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"failedLoginAttempts"`
	LockedUntil         *time.Time `json:"lockedUntil,omitempty"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP         string     `gorm:"column:last_login_ip;type:varchar(50)" json:"lastLoginIp,omitempty"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	MustChangePassword  bool       `gorm:"not null" json:"mustChangePassword"`
	Roles               []Role     `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	CreatedBy           *uint      `json:"createdBy,omitempty"`
	UpdatedBy           *uint      `json:"updatedBy,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) IsActive() bool { return u.Status == UserStatusActive }

func (u *User) IsLocked() bool { return u.Status == UserStatusLocked }
