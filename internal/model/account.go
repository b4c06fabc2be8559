package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountPending AccountStatus = "PENDING"
	AccountActive  AccountStatus = "ACTIVE"
	AccountDormant AccountStatus = "DORMANT"
	AccountFrozen  AccountStatus = "FROZEN"
	AccountBlocked AccountStatus = "BLOCKED"
	AccountClosed  AccountStatus = "CLOSED"
)

// AccountStatuses lists every status in lifecycle order.
var AccountStatuses = []AccountStatus{
	AccountPending, AccountActive, AccountDormant, AccountFrozen, AccountBlocked, AccountClosed,
}

// ParseAccountStatus accepts the exact upper-case literal only.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	for _, st := range AccountStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Account is a CASA or time-deposit account. Rows are never deleted; CLOSED is terminal.
type Account struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	AccountNumber string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"accountNumber"` // {branch3}{type2}{yy}-{seq7}
	AccountName   string       `gorm:"type:varchar(200);not null" json:"accountName"`
	AccountNameCn string       `gorm:"type:varchar(200)" json:"accountNameCn,omitempty"`
	CustomerID    uint         `gorm:"not null;index" json:"customerId"`
	Customer      *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	AccountTypeID uint         `gorm:"not null;index" json:"accountTypeId"`
	AccountType   *AccountType `gorm:"foreignKey:AccountTypeID" json:"accountType,omitempty"`
	BranchID      uint         `gorm:"not null;index" json:"branchId"`
	Branch        *Branch      `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Currency      string       `gorm:"type:varchar(3);not null;default:'PHP'" json:"currency"`

	CurrentBalance   decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"currentBalance"`
	AvailableBalance decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"availableBalance"` // current - hold
	HoldBalance      decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"holdBalance"`
	OverdraftLimit   decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"overdraftLimit"`

	AccruedInterest      decimal.Decimal     `gorm:"type:decimal(19,2);not null;default:0" json:"accruedInterest"`
	LastInterestDate     *time.Time          `gorm:"type:date" json:"lastInterestDate,omitempty"`
	InterestRate         decimal.Decimal     `gorm:"type:decimal(9,6);not null;default:0" json:"interestRate"`
	InterestRateOverride decimal.NullDecimal `gorm:"type:decimal(9,6)" json:"interestRateOverride"`

	// Time deposit
	MaturityDate        *time.Time          `gorm:"type:date" json:"maturityDate,omitempty"`
	PrincipalAmount     decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"principalAmount"`
	MaturityInstruction string              `gorm:"type:varchar(30)" json:"maturityInstruction,omitempty"` // AUTO_RENEW, CREDIT_TO_ACCOUNT

	OpenDate            time.Time     `gorm:"type:date;not null" json:"openDate"`
	CloseDate           *time.Time    `gorm:"type:date" json:"closeDate,omitempty"`
	LastTransactionDate *time.Time    `json:"lastTransactionDate,omitempty"`
	DormantDate         *time.Time    `gorm:"type:date" json:"dormantDate,omitempty"`
	Status              AccountStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	StatusReason        string        `gorm:"type:varchar(255)" json:"statusReason,omitempty"`

	IsJointAccount           bool   `gorm:"not null" json:"isJointAccount"`
	AllowDebit               bool   `gorm:"not null" json:"allowDebit"`
	AllowCredit              bool   `gorm:"not null" json:"allowCredit"`
	AtmEnabled               bool   `gorm:"not null" json:"atmEnabled"`
	OnlineBankingEnabled     bool   `gorm:"not null" json:"onlineBankingEnabled"`
	SmsNotificationEnabled   bool   `gorm:"not null" json:"smsNotificationEnabled"`
	EmailNotificationEnabled bool   `gorm:"not null" json:"emailNotificationEnabled"`
	SignatureType            string `gorm:"type:varchar(20)" json:"signatureType,omitempty"` // SINGLE, JOINT_AND, JOINT_OR
	PassbookNumber           string `gorm:"type:varchar(30)" json:"passbookNumber,omitempty"`
	CheckbookNumber          string `gorm:"type:varchar(30)" json:"checkbookNumber,omitempty"`
	Remarks                  string `gorm:"type:text" json:"remarks,omitempty"`

	CreatedBy  *uint      `json:"createdBy,omitempty"`
	UpdatedBy  *uint      `json:"updatedBy,omitempty"`
	ApprovedBy *uint      `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	ClosedBy   *uint      `json:"closedBy,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// SetBalances assigns current and hold balances and recomputes the available balance.
func (a *Account) SetBalances(current, hold decimal.Decimal) {
	a.CurrentBalance = current
	a.HoldBalance = hold
	a.AvailableBalance = current.Sub(hold)
}
