package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
)

// --- DTOs ---

type CreateRoleRequest struct {
	RoleCode      string `json:"roleCode" binding:"required,max=50"`
	RoleName      string `json:"roleName" binding:"required,max=100"`
	RoleNameCn    string `json:"roleNameCn" binding:"max=100"`
	Description   string `json:"description"`
	DescriptionCn string `json:"descriptionCn"`
	PermissionIDs []uint `json:"permissionIds"`
}

type UpdateRoleRequest struct {
	RoleCode      string `json:"roleCode" binding:"omitempty,max=50"`
	RoleName      string `json:"roleName" binding:"required,max=100"`
	RoleNameCn    string `json:"roleNameCn" binding:"max=100"`
	Description   string `json:"description"`
	DescriptionCn string `json:"descriptionCn"`
	Status        string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	// nil leaves the permission set unchanged; an empty list clears it.
	PermissionIDs *[]uint `json:"permissionIds"`
}

// PermissionGroup is one module's permissions.
type PermissionGroup struct {
	Module      string             `json:"module"`
	Permissions []model.Permission `json:"permissions"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, keyword string, page, limit int) ([]model.Role, int64, error)
	ListActiveRoles(ctx context.Context) ([]model.Role, error)
	GetRole(ctx context.Context, id uint) (*model.Role, error)
	CreateRole(ctx context.Context, actorID uint, req CreateRoleRequest) (*model.Role, error)
	UpdateRole(ctx context.Context, actorID, id uint, req UpdateRoleRequest) (*model.Role, error)
	DeleteRole(ctx context.Context, actorID, id uint) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	ListPermissionsByModule(ctx context.Context) ([]PermissionGroup, error)
}

type roleService struct {
	tx    repository.TransactionManager
	roles repository.RoleRepository
	audit audit.Emitter
}

func NewRoleService(tx repository.TransactionManager, roles repository.RoleRepository, emitter audit.Emitter) RoleService {
	return &roleService{tx: tx, roles: roles, audit: emitter}
}

const entityRole = "Role"

var roleCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, keyword string, page, limit int) ([]model.Role, int64, error) {
	page, limit = normalizePage(page, limit)
	roles, total, err := s.roles.List(ctx, keyword, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return roles, total, nil
}

func (s *roleService) ListActiveRoles(ctx context.Context) ([]model.Role, error) {
	return s.roles.ListActive(ctx)
}

func (s *roleService) GetRole(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityRole, "id", id)
	}
	return role, nil
}

func (s *roleService) CreateRole(ctx context.Context, actorID uint, req CreateRoleRequest) (*model.Role, error) {
	code := strings.ToUpper(strings.TrimSpace(req.RoleCode))
	if !roleCodePattern.MatchString(code) {
		return nil, apperr.Validation(map[string]string{"roleCode": "Role code must contain only uppercase letters, digits and underscores"})
	}

	role := &model.Role{
		RoleCode:      code,
		RoleName:      req.RoleName,
		RoleNameCn:    req.RoleNameCn,
		Description:   req.Description,
		DescriptionCn: req.DescriptionCn,
		IsSystemRole:  false,
		Status:        "ACTIVE",
		CreatedBy:     &actorID,
		UpdatedBy:     &actorID,
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.roles.ExistsByCode(txCtx, code)
		if err != nil {
			return fmt.Errorf("check role code: %w", err)
		}
		if exists {
			return apperr.Conflict(entityRole, "roleCode", code)
		}
		if err := s.roles.Create(txCtx, role); err != nil {
			return conflictOr(err, entityRole, "roleCode", code)
		}
		if len(req.PermissionIDs) > 0 {
			if err := s.roles.ReplacePermissions(txCtx, role, req.PermissionIDs); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionCreate,
		Module:      model.ModuleAdministration,
		EntityType:  entityRole,
		EntityID:    &role.ID,
		NewValue:    role,
		Description: "Created role: " + role.RoleCode,
	})
	return s.GetRole(ctx, role.ID)
}

// UpdateRole edits a role. System roles keep their code.
func (s *roleService) UpdateRole(ctx context.Context, actorID, id uint, req UpdateRoleRequest) (*model.Role, error) {
	var before model.Role
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, entityRole, "id", id)
		}
		before = *role

		code := strings.ToUpper(strings.TrimSpace(req.RoleCode))
		if code != "" && code != role.RoleCode {
			if role.IsSystemRole {
				return apperr.New(apperr.CodeBusiness, "Cannot change system role code")
			}
			if !roleCodePattern.MatchString(code) {
				return apperr.Validation(map[string]string{"roleCode": "Role code must contain only uppercase letters, digits and underscores"})
			}
			exists, err := s.roles.ExistsByCode(txCtx, code)
			if err != nil {
				return fmt.Errorf("check role code: %w", err)
			}
			if exists {
				return apperr.Conflict(entityRole, "roleCode", code)
			}
			role.RoleCode = code
		}

		role.RoleName = req.RoleName
		role.RoleNameCn = req.RoleNameCn
		role.Description = req.Description
		role.DescriptionCn = req.DescriptionCn
		if req.Status != "" {
			role.Status = req.Status
		}
		role.UpdatedBy = &actorID

		if err := s.roles.Update(txCtx, role); err != nil {
			return conflictOr(err, entityRole, "roleCode", role.RoleCode)
		}
		if req.PermissionIDs != nil {
			if err := s.roles.ReplacePermissions(txCtx, role, *req.PermissionIDs); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUpdate,
		Module:      model.ModuleAdministration,
		EntityType:  entityRole,
		EntityID:    &updated.ID,
		OldValue:    &before,
		NewValue:    updated,
		Description: "Updated role: " + updated.RoleCode,
	})
	return updated, nil
}

func (s *roleService) DeleteRole(ctx context.Context, actorID, id uint) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, entityRole, "id", id)
	}
	if role.IsSystemRole {
		return apperr.New(apperr.CodeBusiness, "Cannot delete system role")
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.roles.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionDelete,
		Module:      model.ModuleAdministration,
		EntityType:  entityRole,
		EntityID:    &role.ID,
		OldValue:    role,
		Description: "Deleted role: " + role.RoleCode,
	})
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	return perms, nil
}

func (s *roleService) ListPermissionsByModule(ctx context.Context) ([]PermissionGroup, error) {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return groupPermissions(perms), nil
}

// groupPermissions buckets permissions by module, modules in name order.
func groupPermissions(perms []model.Permission) []PermissionGroup {
	byModule := make(map[string][]model.Permission)
	for _, p := range perms {
		byModule[p.Module] = append(byModule[p.Module], p)
	}
	modules := make([]string, 0, len(byModule))
	for m := range byModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	groups := make([]PermissionGroup, 0, len(modules))
	for _, m := range modules {
		groups = append(groups, PermissionGroup{Module: m, Permissions: byModule[m]})
	}
	return groups
}
