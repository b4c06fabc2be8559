package service

import (
	"context"
	"fmt"
	"strings"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
)

type CreateBranchRequest struct {
	BranchCode   string `json:"branchCode" binding:"required,max=10"`
	BranchName   string `json:"branchName" binding:"required,max=100"`
	BranchNameCn string `json:"branchNameCn" binding:"max=100"`
	Address      string `json:"address" binding:"max=255"`
	City         string `json:"city" binding:"max=50"`
	Province     string `json:"province" binding:"max=50"`
	PostalCode   string `json:"postalCode" binding:"max=10"`
	Phone        string `json:"phone" binding:"max=20"`
	Email        string `json:"email" binding:"omitempty,email"`
	ManagerName  string `json:"managerName" binding:"max=100"`
}

type UpdateBranchRequest struct {
	BranchName   string `json:"branchName" binding:"required,max=100"`
	BranchNameCn string `json:"branchNameCn" binding:"max=100"`
	Address      string `json:"address" binding:"max=255"`
	City         string `json:"city" binding:"max=50"`
	Province     string `json:"province" binding:"max=50"`
	PostalCode   string `json:"postalCode" binding:"max=10"`
	Phone        string `json:"phone" binding:"max=20"`
	Email        string `json:"email" binding:"omitempty,email"`
	ManagerName  string `json:"managerName" binding:"max=100"`
	Status       string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type BranchService interface {
	CreateBranch(ctx context.Context, actorID uint, req CreateBranchRequest) (*model.Branch, error)
	UpdateBranch(ctx context.Context, actorID, id uint, req UpdateBranchRequest) (*model.Branch, error)
	DeleteBranch(ctx context.Context, actorID, id uint) error
	GetBranch(ctx context.Context, id uint) (*model.Branch, error)
	ListBranches(ctx context.Context, keyword string, page, limit int) ([]model.Branch, int64, error)
	ListActiveBranches(ctx context.Context) ([]model.Branch, error)
}

type branchService struct {
	branches repository.BranchRepository
	audit    audit.Emitter
}

func NewBranchService(branches repository.BranchRepository, emitter audit.Emitter) BranchService {
	return &branchService{branches: branches, audit: emitter}
}

const entityBranch = "Branch"

func (s *branchService) CreateBranch(ctx context.Context, actorID uint, req CreateBranchRequest) (*model.Branch, error) {
	code := strings.ToUpper(strings.TrimSpace(req.BranchCode))
	if !numberCodePattern.MatchString(code) {
		return nil, apperr.Validation(map[string]string{"branchCode": "Branch code must contain only letters and digits"})
	}
	exists, err := s.branches.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check branch code: %w", err)
	}
	if exists {
		return nil, apperr.Conflict(entityBranch, "branchCode", code)
	}

	branch := &model.Branch{
		BranchCode:   code,
		BranchName:   req.BranchName,
		BranchNameCn: req.BranchNameCn,
		Address:      req.Address,
		City:         req.City,
		Province:     req.Province,
		PostalCode:   req.PostalCode,
		Phone:        req.Phone,
		Email:        req.Email,
		ManagerName:  req.ManagerName,
		IsHeadOffice: false,
		Status:       model.BranchStatusActive,
		CreatedBy:    &actorID,
		UpdatedBy:    &actorID,
	}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, conflictOr(err, entityBranch, "branchCode", code)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionCreate,
		Module:      model.ModuleAdministration,
		EntityType:  entityBranch,
		EntityID:    &branch.ID,
		NewValue:    branch,
		Description: "Created branch: " + branch.BranchCode,
	})
	return branch, nil
}

func (s *branchService) UpdateBranch(ctx context.Context, actorID, id uint, req UpdateBranchRequest) (*model.Branch, error) {
	branch, err := s.branches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityBranch, "id", id)
	}
	before := *branch

	branch.BranchName = req.BranchName
	branch.BranchNameCn = req.BranchNameCn
	branch.Address = req.Address
	branch.City = req.City
	branch.Province = req.Province
	branch.PostalCode = req.PostalCode
	branch.Phone = req.Phone
	branch.Email = req.Email
	branch.ManagerName = req.ManagerName
	if req.Status != "" {
		branch.Status = req.Status
	}
	branch.UpdatedBy = &actorID

	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, fmt.Errorf("failed to update branch: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUpdate,
		Module:      model.ModuleAdministration,
		EntityType:  entityBranch,
		EntityID:    &branch.ID,
		OldValue:    &before,
		NewValue:    branch,
		Description: "Updated branch: " + branch.BranchCode,
	})
	return branch, nil
}

// DeleteBranch removes a branch. The head office is permanent.
func (s *branchService) DeleteBranch(ctx context.Context, actorID, id uint) error {
	branch, err := s.branches.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, entityBranch, "id", id)
	}
	if branch.IsHeadOffice {
		return apperr.New(apperr.CodeBusiness, "Cannot delete head office")
	}
	if err := s.branches.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionDelete,
		Module:      model.ModuleAdministration,
		EntityType:  entityBranch,
		EntityID:    &branch.ID,
		OldValue:    branch,
		Description: "Deleted branch: " + branch.BranchCode,
	})
	return nil
}

func (s *branchService) GetBranch(ctx context.Context, id uint) (*model.Branch, error) {
	branch, err := s.branches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityBranch, "id", id)
	}
	return branch, nil
}

func (s *branchService) ListBranches(ctx context.Context, keyword string, page, limit int) ([]model.Branch, int64, error) {
	page, limit = normalizePage(page, limit)
	branches, total, err := s.branches.List(ctx, keyword, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, total, nil
}

func (s *branchService) ListActiveBranches(ctx context.Context) ([]model.Branch, error) {
	return s.branches.ListActive(ctx)
}
