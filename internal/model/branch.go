package model

import "time"

// Branch status values
const (
	BranchStatusActive   = "ACTIVE"
	BranchStatusInactive = "INACTIVE"
)

// Branch is a physical bank branch. Its code seeds account numbers.
type Branch struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BranchCode   string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"branchCode"`
	BranchName   string    `gorm:"type:varchar(100);not null" json:"branchName"`
	BranchNameCn string    `gorm:"type:varchar(100)" json:"branchNameCn,omitempty"`
	Address      string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	City         string    `gorm:"type:varchar(50)" json:"city,omitempty"`
	Province     string    `gorm:"type:varchar(50)" json:"province,omitempty"`
	PostalCode   string    `gorm:"type:varchar(10)" json:"postalCode,omitempty"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email        string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	ManagerName  string    `gorm:"type:varchar(100)" json:"managerName,omitempty"`
	IsHeadOffice bool      `gorm:"not null" json:"isHeadOffice"` // head office cannot be deleted
	Status       string    `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedBy    *uint     `json:"createdBy,omitempty"`
	UpdatedBy    *uint     `json:"updatedBy,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
