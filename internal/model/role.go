package model

import (
	"time"
)

// RolePrefix marks role authorities so they never collide with permission codes.
const RolePrefix = "ROLE_"

// Role groups permissions. System roles cannot be deleted or have their code changed.
type Role struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	RoleCode      string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"roleCode"` // upper case + underscore
	RoleName      string       `gorm:"type:varchar(100);not null" json:"roleName"`
	RoleNameCn    string       `gorm:"type:varchar(100)" json:"roleNameCn,omitempty"`
	Description   string       `gorm:"type:text" json:"description,omitempty"`
	DescriptionCn string       `gorm:"type:text" json:"descriptionCn,omitempty"`
	IsSystemRole  bool         `gorm:"not null" json:"isSystemRole"`
	Status        string       `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Permissions   []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedBy     *uint        `json:"createdBy,omitempty"`
	UpdatedBy     *uint        `json:"updatedBy,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Permission is reference data assigned to roles only.
type Permission struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PermissionCode   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"permissionCode"` // e.g. "CASA_ACCOUNT_VIEW"
	PermissionName   string    `gorm:"type:varchar(100);not null" json:"permissionName"`
	PermissionNameCn string    `gorm:"type:varchar(100)" json:"permissionNameCn,omitempty"`
	Module           string    `gorm:"type:varchar(50);not null;index" json:"module"` // "USER_MANAGEMENT", "CASA", ...
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Authority codes checked at the REST boundary.
const (
	PermUserView          = "USER_VIEW"
	PermUserCreate        = "USER_CREATE"
	PermUserUpdate        = "USER_UPDATE"
	PermUserDelete        = "USER_DELETE"
	PermUserResetPassword = "USER_RESET_PASSWORD"
	PermPermissionView    = "PERMISSION_VIEW"
	PermRoleView          = "ROLE_VIEW"
	PermRoleCreate        = "ROLE_CREATE"
	PermRoleUpdate        = "ROLE_UPDATE"
	PermRoleDelete        = "ROLE_DELETE"
	PermBranchView        = "BRANCH_VIEW"
	PermBranchCreate      = "BRANCH_CREATE"
	PermBranchUpdate      = "BRANCH_UPDATE"
	PermBranchDelete      = "BRANCH_DELETE"
	PermAuditView         = "AUDIT_VIEW"
	PermDashboardView     = "DASHBOARD_VIEW"

	PermCustomerView   = "CASA_CUSTOMER_VIEW"
	PermCustomerCreate = "CASA_CUSTOMER_CREATE"
	PermCustomerUpdate = "CASA_CUSTOMER_UPDATE"
	PermTypeView       = "CASA_TYPE_VIEW"
	PermTypeCreate     = "CASA_TYPE_CREATE"
	PermTypeUpdate     = "CASA_TYPE_UPDATE"
	PermAccountView    = "CASA_ACCOUNT_VIEW"
	PermAccountCreate  = "CASA_ACCOUNT_CREATE"
	PermAccountUpdate  = "CASA_ACCOUNT_UPDATE"
	PermAccountClose   = "CASA_ACCOUNT_CLOSE"
)
