package model

import (
	"time"
)

// Audit actions
const (
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionDelete         = "DELETE"
	ActionResetPassword  = "RESET_PASSWORD"
	ActionChangePassword = "CHANGE_PASSWORD"

	ActionOpenAccount     = "OPEN_ACCOUNT"
	ActionUpdateAccount   = "UPDATE_ACCOUNT"
	ActionUpdateStatus    = "UPDATE_STATUS"
	ActionFreezeAccount   = "FREEZE_ACCOUNT"
	ActionUnfreezeAccount = "UNFREEZE_ACCOUNT"
	ActionCloseAccount    = "CLOSE_ACCOUNT"
	ActionDormantAccount  = "MARK_DORMANT"
	ActionUpdateBalance   = "UPDATE_BALANCE"
	ActionVerifyKyc       = "VERIFY_KYC"
	ActionUnlockUser      = "UNLOCK_USER"
)

// Audit modules
const (
	ModuleAuthentication = "AUTHENTICATION"
	ModuleAdministration = "ADMINISTRATION"
	ModuleCASA           = "CASA"
	ModuleSystem         = "SYSTEM"
)

// AuditLog tracks who did what to which entity. Append-only.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      *uint     `gorm:"index" json:"userId,omitempty"` // nil for scheduler jobs
	Username    string    `gorm:"type:varchar(50)" json:"username,omitempty"`
	Action      string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Module      string    `gorm:"type:varchar(50);not null;index" json:"module"`
	EntityType  string    `gorm:"type:varchar(50);index:idx_audit_entity" json:"entityType,omitempty"`
	EntityID    *uint     `gorm:"index:idx_audit_entity" json:"entityId,omitempty"`
	OldValue    *string   `gorm:"type:jsonb" json:"oldValue,omitempty"` // serialized snapshot, NULL when absent
	NewValue    *string   `gorm:"type:jsonb" json:"newValue,omitempty"`
	IPAddress   string    `gorm:"column:ip_address;type:varchar(50)" json:"ipAddress,omitempty"`
	UserAgent   string    `gorm:"type:varchar(500)" json:"userAgent,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}
