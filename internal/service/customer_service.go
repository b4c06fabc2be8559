package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/pkg/clock"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

// CustomerProfile holds the fields shared by create and update.
type CustomerProfile struct {
	FirstName           string `json:"firstName" binding:"max=100"`
	MiddleName          string `json:"middleName" binding:"max=100"`
	LastName            string `json:"lastName" binding:"max=100"`
	FirstNameCn         string `json:"firstNameCn" binding:"max=100"`
	LastNameCn          string `json:"lastNameCn" binding:"max=100"`
	DateOfBirth         string `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Gender              string `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	Nationality         string `json:"nationality"`
	CompanyName         string `json:"companyName" binding:"max=200"`
	CompanyNameCn       string `json:"companyNameCn" binding:"max=200"`
	RegistrationNumber  string `json:"registrationNumber"`
	DateOfIncorporation string `json:"dateOfIncorporation" binding:"omitempty,datetime=2006-01-02"`
	Industry            string `json:"industry"`
	Email               string `json:"email" binding:"omitempty,email"`
	MobilePhone         string `json:"mobilePhone"`
	HomePhone           string `json:"homePhone"`
	WorkPhone           string `json:"workPhone"`
	AddressLine1        string `json:"addressLine1"`
	AddressLine2        string `json:"addressLine2"`
	City                string `json:"city"`
	Province            string `json:"province"`
	PostalCode          string `json:"postalCode"`
	Country             string `json:"country"`
	IDType              string `json:"idType" binding:"required,oneof=PASSPORT NATIONAL_ID DRIVERS_LICENSE SSS TIN UMID OTHER"`
	IDNumber            string `json:"idNumber" binding:"required,max=50"`
	IDExpiryDate        string `json:"idExpiryDate" binding:"omitempty,datetime=2006-01-02"`
	TaxID               string `json:"taxId"`
	RiskRating          string `json:"riskRating" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	RelationshipManager *uint  `json:"relationshipManager"`
	Remarks             string `json:"remarks"`
}

type CreateCustomerRequest struct {
	CustomerType model.CustomerType `json:"customerType" binding:"required,oneof=INDIVIDUAL CORPORATE"`
	BranchID     uint               `json:"branchId" binding:"required"`
	CustomerProfile
}

type UpdateCustomerRequest struct {
	CustomerProfile
}

type CustomerResponse struct {
	model.Customer
	BranchCode     string `json:"branchCode,omitempty"`
	BranchName     string `json:"branchName,omitempty"`
	DisplayName    string `json:"displayName"`
	ActiveAccounts *int64 `json:"activeAccounts,omitempty"`
}

type CustomerStats struct {
	TotalActive     int64 `json:"totalActive"`
	TotalInactive   int64 `json:"totalInactive"`
	TotalBlocked    int64 `json:"totalBlocked"`
	TotalDeceased   int64 `json:"totalDeceased"`
	TotalIndividual int64 `json:"totalIndividual"`
	TotalCorporate  int64 `json:"totalCorporate"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, actorID uint, req CreateCustomerRequest) (*CustomerResponse, error)
	GetCustomer(ctx context.Context, id uint) (*CustomerResponse, error)
	GetByNumber(ctx context.Context, number string) (*CustomerResponse, error)
	ListCustomers(ctx context.Context, filter repository.CustomerFilter, page, limit int) ([]CustomerResponse, int64, error)
	UpdateCustomer(ctx context.Context, actorID, id uint, req UpdateCustomerRequest) (*CustomerResponse, error)
	UpdateStatus(ctx context.Context, actorID, id uint, status string) (*CustomerResponse, error)
	VerifyKyc(ctx context.Context, actorID, id uint) (*CustomerResponse, error)
	Stats(ctx context.Context) (*CustomerStats, error)
}

type customerService struct {
	tx        repository.TransactionManager
	customers repository.CustomerRepository
	accounts  repository.AccountRepository
	branches  repository.BranchRepository
	audit     audit.Emitter
	clock     clock.Clock
	logger    *slog.Logger
}

func NewCustomerService(
	tx repository.TransactionManager,
	customers repository.CustomerRepository,
	accounts repository.AccountRepository,
	branches repository.BranchRepository,
	emitter audit.Emitter,
	clk clock.Clock,
) CustomerService {
	return &customerService{
		tx:        tx,
		customers: customers,
		accounts:  accounts,
		branches:  branches,
		audit:     emitter,
		clock:     clk,
		logger:    slog.Default(),
	}
}

const entityCustomer = "Customer"

var customerStatuses = []string{
	model.CustomerStatusActive, model.CustomerStatusInactive, model.CustomerStatusBlocked, model.CustomerStatusDeceased,
}

func (s *customerService) CreateCustomer(ctx context.Context, actorID uint, req CreateCustomerRequest) (*CustomerResponse, error) {
	if err := validateIdentity(req.CustomerType, req.CustomerProfile); err != nil {
		return nil, err
	}
	branch, err := s.branches.FindByID(ctx, req.BranchID)
	if err != nil {
		return nil, notFoundOr(err, "Branch", "id", req.BranchID)
	}

	customer := &model.Customer{
		CustomerType: req.CustomerType,
		BranchID:     branch.ID,
		Status:       model.CustomerStatusActive,
		RiskRating:   model.RiskLow,
		KycVerified:  false,
		CreatedBy:    &actorID,
		UpdatedBy:    &actorID,
	}
	if err := applyProfile(customer, req.CustomerProfile, true); err != nil {
		return nil, err
	}

	prefix := CustomerNumberPrefix(req.CustomerType, s.clock.Now())
	err = runWithNumberRetry(ctx, s.tx, s.logger, "customer", prefix, func(txCtx context.Context) error {
		max, err := s.customers.MaxNumberWithPrefix(txCtx, prefix)
		if err != nil {
			return fmt.Errorf("read max customer number: %w", err)
		}
		customer.ID = 0
		customer.CustomerNumber = NextCustomerNumber(prefix, max)
		return s.customers.Create(txCtx, customer)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionCreate,
		Module:      model.ModuleCASA,
		EntityType:  entityCustomer,
		EntityID:    &customer.ID,
		NewValue:    customerSnapshot(customer),
		Description: "Created customer " + customer.CustomerNumber,
	})

	customer.Branch = branch
	return toCustomerResponse(customer), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uint) (*CustomerResponse, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityCustomer, "id", id)
	}
	return s.withAccountCount(ctx, c)
}

func (s *customerService) GetByNumber(ctx context.Context, number string) (*CustomerResponse, error) {
	c, err := s.customers.FindByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, entityCustomer, "customerNumber", number)
	}
	return s.withAccountCount(ctx, c)
}

func (s *customerService) withAccountCount(ctx context.Context, c *model.Customer) (*CustomerResponse, error) {
	res := toCustomerResponse(c)
	n, err := s.accounts.CountActiveByCustomer(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("count customer accounts: %w", err)
	}
	res.ActiveAccounts = &n
	return res, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customers.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, *toCustomerResponse(&customers[i]))
	}
	return res, total, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, actorID, id uint, req UpdateCustomerRequest) (*CustomerResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionUpdate, "Updated customer", func(c *model.Customer) error {
		if err := validateIdentity(c.CustomerType, req.CustomerProfile); err != nil {
			return err
		}
		return applyProfile(c, req.CustomerProfile, false)
	})
}

func (s *customerService) UpdateStatus(ctx context.Context, actorID, id uint, status string) (*CustomerResponse, error) {
	if !containsString(customerStatuses, status) {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("Unknown customer status '%s'", status)})
	}
	return s.mutate(ctx, actorID, id, model.ActionUpdateStatus, "Changed customer status to "+status, func(c *model.Customer) error {
		c.Status = status
		return nil
	})
}

func (s *customerService) VerifyKyc(ctx context.Context, actorID, id uint) (*CustomerResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionVerifyKyc, "Verified KYC for customer", func(c *model.Customer) error {
		now := s.clock.Now()
		c.KycVerified = true
		c.KycVerifiedDate = &now
		c.KycVerifiedBy = &actorID
		return nil
	})
}

func (s *customerService) mutate(ctx context.Context, actorID, id uint, action, description string, fn func(c *model.Customer) error) (*CustomerResponse, error) {
	var before, after *model.Customer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.customers.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, entityCustomer, "id", id)
		}
		before = customerSnapshot(c)
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedBy = &actorID
		if err := s.customers.Update(txCtx, c); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		after = customerSnapshot(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      action,
		Module:      model.ModuleCASA,
		EntityType:  entityCustomer,
		EntityID:    &id,
		OldValue:    before,
		NewValue:    after,
		Description: description + " " + after.CustomerNumber,
	})
	return s.GetCustomer(ctx, id)
}

func (s *customerService) Stats(ctx context.Context) (*CustomerStats, error) {
	stats := &CustomerStats{}
	byStatus := map[string]*int64{
		model.CustomerStatusActive:   &stats.TotalActive,
		model.CustomerStatusInactive: &stats.TotalInactive,
		model.CustomerStatusBlocked:  &stats.TotalBlocked,
		model.CustomerStatusDeceased: &stats.TotalDeceased,
	}
	for status, dst := range byStatus {
		n, err := s.customers.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s customers: %w", status, err)
		}
		*dst = n
	}
	var err error
	if stats.TotalIndividual, err = s.customers.CountByType(ctx, model.CustomerIndividual); err != nil {
		return nil, fmt.Errorf("count individual customers: %w", err)
	}
	if stats.TotalCorporate, err = s.customers.CountByType(ctx, model.CustomerCorporate); err != nil {
		return nil, fmt.Errorf("count corporate customers: %w", err)
	}
	return stats, nil
}

func validateIdentity(t model.CustomerType, p CustomerProfile) error {
	fields := map[string]string{}
	switch t {
	case model.CustomerIndividual:
		if strings.TrimSpace(p.FirstName) == "" {
			fields["firstName"] = "First name is required for individual customers"
		}
		if strings.TrimSpace(p.LastName) == "" {
			fields["lastName"] = "Last name is required for individual customers"
		}
	case model.CustomerCorporate:
		if strings.TrimSpace(p.CompanyName) == "" {
			fields["companyName"] = "Company name is required for corporate customers"
		}
	default:
		fields["customerType"] = "Customer type must be INDIVIDUAL or CORPORATE"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// applyProfile copies the type-specific identity fields plus contact, address
// and identification details onto c.
func applyProfile(c *model.Customer, p CustomerProfile, creating bool) error {
	fields := map[string]string{}
	parse := func(field, v string) *time.Time {
		if v == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields[field] = "Expected date in YYYY-MM-DD format"
			return nil
		}
		return &t
	}

	if c.CustomerType == model.CustomerIndividual {
		c.FirstName = p.FirstName
		c.MiddleName = p.MiddleName
		c.LastName = p.LastName
		c.FirstNameCn = p.FirstNameCn
		c.LastNameCn = p.LastNameCn
		c.DateOfBirth = parse("dateOfBirth", p.DateOfBirth)
		c.Gender = p.Gender
		c.Nationality = p.Nationality
	} else {
		c.CompanyName = p.CompanyName
		c.CompanyNameCn = p.CompanyNameCn
		c.RegistrationNumber = p.RegistrationNumber
		c.DateOfIncorporation = parse("dateOfIncorporation", p.DateOfIncorporation)
		c.Industry = p.Industry
	}

	c.Email = p.Email
	c.MobilePhone = p.MobilePhone
	c.HomePhone = p.HomePhone
	c.WorkPhone = p.WorkPhone
	c.AddressLine1 = p.AddressLine1
	c.AddressLine2 = p.AddressLine2
	c.City = p.City
	c.Province = p.Province
	c.PostalCode = p.PostalCode
	c.Country = p.Country
	c.IDType = p.IDType
	c.IDNumber = p.IDNumber
	c.IDExpiryDate = parse("idExpiryDate", p.IDExpiryDate)
	c.TaxID = p.TaxID
	if p.RiskRating != "" || !creating {
		c.RiskRating = p.RiskRating
	}
	if c.RiskRating == "" {
		c.RiskRating = model.RiskLow
	}
	c.RelationshipManager = p.RelationshipManager
	c.Remarks = p.Remarks

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func customerSnapshot(c *model.Customer) *model.Customer {
	cp := *c
	cp.Branch = nil
	return &cp
}

func toCustomerResponse(c *model.Customer) *CustomerResponse {
	res := &CustomerResponse{Customer: *customerSnapshot(c), DisplayName: c.DisplayName()}
	if c.Branch != nil {
		res.BranchCode = c.Branch.BranchCode
		res.BranchName = c.Branch.BranchName
	}
	return res
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
