package model

import "time"

type CustomerType string

const (
	CustomerIndividual CustomerType = "INDIVIDUAL"
	CustomerCorporate  CustomerType = "CORPORATE"
)

// Customer status values. Only ACTIVE customers may open accounts.
const (
	CustomerStatusActive   = "ACTIVE"
	CustomerStatusInactive = "INACTIVE"
	CustomerStatusBlocked  = "BLOCKED"
	CustomerStatusDeceased = "DECEASED"
)

// Risk ratings
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Customer is a CIF record. CustomerNumber is generated as CIF{yy}{I|C}{seq6}.
type Customer struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	CustomerNumber string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"customerNumber"`
	CustomerType   CustomerType `gorm:"type:varchar(20);not null;index" json:"customerType"`

	// Individual
	FirstName   string     `gorm:"type:varchar(100)" json:"firstName,omitempty"`
	MiddleName  string     `gorm:"type:varchar(100)" json:"middleName,omitempty"`
	LastName    string     `gorm:"type:varchar(100)" json:"lastName,omitempty"`
	FirstNameCn string     `gorm:"type:varchar(100)" json:"firstNameCn,omitempty"`
	LastNameCn  string     `gorm:"type:varchar(100)" json:"lastNameCn,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"dateOfBirth,omitempty"`
	Gender      string     `gorm:"type:varchar(10)" json:"gender,omitempty"`
	Nationality string     `gorm:"type:varchar(50)" json:"nationality,omitempty"`

	// Corporate
	CompanyName         string     `gorm:"type:varchar(200)" json:"companyName,omitempty"`
	CompanyNameCn       string     `gorm:"type:varchar(200)" json:"companyNameCn,omitempty"`
	RegistrationNumber  string     `gorm:"type:varchar(50)" json:"registrationNumber,omitempty"`
	DateOfIncorporation *time.Time `gorm:"type:date" json:"dateOfIncorporation,omitempty"`
	Industry            string     `gorm:"type:varchar(100)" json:"industry,omitempty"`

	// Contact
	Email       string `gorm:"type:varchar(100);index" json:"email,omitempty"`
	MobilePhone string `gorm:"type:varchar(20)" json:"mobilePhone,omitempty"`
	HomePhone   string `gorm:"type:varchar(20)" json:"homePhone,omitempty"`
	WorkPhone   string `gorm:"type:varchar(20)" json:"workPhone,omitempty"`

	// Address
	AddressLine1 string `gorm:"type:varchar(255)" json:"addressLine1,omitempty"`
	AddressLine2 string `gorm:"type:varchar(255)" json:"addressLine2,omitempty"`
	City         string `gorm:"type:varchar(100)" json:"city,omitempty"`
	Province     string `gorm:"type:varchar(100)" json:"province,omitempty"`
	PostalCode   string `gorm:"type:varchar(20)" json:"postalCode,omitempty"`
	Country      string `gorm:"type:varchar(50)" json:"country,omitempty"`

	// Identification
	IDType       string     `gorm:"column:id_type;type:varchar(30);not null" json:"idType"`
	IDNumber     string     `gorm:"column:id_number;type:varchar(50);not null;index" json:"idNumber"`
	IDExpiryDate *time.Time `gorm:"column:id_expiry_date;type:date" json:"idExpiryDate,omitempty"`
	TaxID        string     `gorm:"column:tax_id;type:varchar(50)" json:"taxId,omitempty"`

	RiskRating          string     `gorm:"type:varchar(10);default:'LOW'" json:"riskRating"`
	KycVerified         bool       `gorm:"not null" json:"kycVerified"`
	KycVerifiedDate     *time.Time `json:"kycVerifiedDate,omitempty"`
	KycVerifiedBy       *uint      `json:"kycVerifiedBy,omitempty"`
	BranchID            uint       `gorm:"not null;index" json:"branchId"`
	Branch              *Branch    `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	RelationshipManager *uint      `json:"relationshipManager,omitempty"` // user id of the RM
	Status              string     `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	Remarks             string     `gorm:"type:text" json:"remarks,omitempty"`
	CreatedBy           *uint      `json:"createdBy,omitempty"`
	UpdatedBy           *uint      `json:"updatedBy,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// DisplayName is "Last, First" for individuals and the company name for corporates.
func (c *Customer) DisplayName() string {
	if c.CustomerType == CustomerIndividual {
		return c.LastName + ", " + c.FirstName
	}
	return c.CompanyName
}
