package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountCategory string

const (
	CategorySavings     AccountCategory = "SAVINGS"
	CategoryCurrent     AccountCategory = "CURRENT"
	CategoryTimeDeposit AccountCategory = "TIME_DEPOSIT"
)

// Product status values
const (
	ProductStatusActive   = "ACTIVE"
	ProductStatusInactive = "INACTIVE"
)

// DefaultCurrency is used when a product does not name one.
const DefaultCurrency = "PHP"

// AccountType is a deposit product. Read-only from the account lifecycle's point of view.
type AccountType struct {
	ID                       uint                `gorm:"primaryKey" json:"id"`
	TypeCode                 string              `gorm:"type:varchar(10);uniqueIndex;not null" json:"typeCode"`
	TypeName                 string              `gorm:"type:varchar(100);not null" json:"typeName"`
	TypeNameCn               string              `gorm:"type:varchar(100)" json:"typeNameCn,omitempty"`
	Category                 AccountCategory     `gorm:"type:varchar(20);not null;index" json:"category"`
	Description              string              `gorm:"type:text" json:"description,omitempty"`
	DescriptionCn            string              `gorm:"type:text" json:"descriptionCn,omitempty"`
	InterestRate             decimal.Decimal     `gorm:"type:decimal(9,6);not null;default:0" json:"interestRate"` // annual, 0.0250 = 2.50%
	InterestCalculation      string              `gorm:"type:varchar(20)" json:"interestCalculation,omitempty"`      // DAILY_BALANCE, AVERAGE_DAILY_BALANCE, MINIMUM_BALANCE
	InterestPostingFrequency string              `gorm:"type:varchar(20)" json:"interestPostingFrequency,omitempty"` // MONTHLY, QUARTERLY, ...
	MinimumBalance           decimal.Decimal     `gorm:"type:decimal(19,2);not null;default:0" json:"minimumBalance"`
	MinimumOpeningBalance    decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"minimumOpeningBalance"`
	MaximumBalance           decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"maximumBalance"`
	MonthlyFee               decimal.Decimal     `gorm:"type:decimal(19,2);not null;default:0" json:"monthlyFee"`
	BelowMinimumFee          decimal.Decimal     `gorm:"type:decimal(19,2);not null;default:0" json:"belowMinimumFee"`
	DormancyFee              decimal.Decimal     `gorm:"type:decimal(19,2);not null;default:0" json:"dormancyFee"`
	DailyWithdrawalLimit     decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"dailyWithdrawalLimit"`
	DailyTransferLimit       decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"dailyTransferLimit"`
	MaxTransactionsPerDay    *int                `json:"maxTransactionsPerDay,omitempty"`
	TermDays                 *int                `json:"termDays,omitempty"` // time deposits only
	EarlyWithdrawalPenalty   decimal.NullDecimal `gorm:"column:early_withdrawal_penalty_rate;type:decimal(9,6)" json:"earlyWithdrawalPenaltyRate"`
	AllowIndividual          bool                `gorm:"not null" json:"allowIndividual"`
	AllowCorporate           bool                `gorm:"not null" json:"allowCorporate"`
	MinimumAge               *int                `json:"minimumAge,omitempty"`
	MaximumAge               *int                `json:"maximumAge,omitempty"`
	Currency                 string              `gorm:"type:varchar(3);not null;default:'PHP'" json:"currency"`
	Status                   string              `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedBy                *uint               `json:"createdBy,omitempty"`
	UpdatedBy                *uint               `json:"updatedBy,omitempty"`
	CreatedAt                time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt                time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Allows reports whether customers of the given type may hold this product.
func (t *AccountType) Allows(ct CustomerType) bool {
	switch ct {
	case CustomerIndividual:
		return t.AllowIndividual
	case CustomerCorporate:
		return t.AllowCorporate
	}
	return false
}
