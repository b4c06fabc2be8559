// Package security turns stored users and roles into authenticated principals
// and issues and validates the JWTs that carry them between requests.
package security

import (
	"sort"

	"secbank-cbs/internal/model"
)

// Principal is an immutable snapshot of an authenticated user.
type Principal struct {
	UserID             uint
	Username           string
	Email              string
	FullName           string
	BranchID           *uint
	Status             string
	MustChangePassword bool

	authorities []string
	index       map[string]struct{}
}

// ResolveAuthorities flattens roles into a sorted, de-duplicated authority list:
// every permission code of every role plus ROLE_<code> for each role.
func ResolveAuthorities(roles []model.Role) []string {
	set := make(map[string]struct{})
	for _, r := range roles {
		for _, p := range r.Permissions {
			set[p.PermissionCode] = struct{}{}
		}
		set[model.RolePrefix+r.RoleCode] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// NewPrincipal builds a principal from a user loaded with Roles.Permissions.
func NewPrincipal(user *model.User) *Principal {
	auths := ResolveAuthorities(user.Roles)
	index := make(map[string]struct{}, len(auths))
	for _, a := range auths {
		index[a] = struct{}{}
	}
	var branchID *uint
	if user.BranchID != nil {
		id := *user.BranchID
		branchID = &id
	}
	return &Principal{
		UserID:             user.ID,
		Username:           user.Username,
		Email:              user.Email,
		FullName:           user.FullName,
		BranchID:           branchID,
		Status:             user.Status,
		MustChangePassword: user.MustChangePassword,
		authorities:        auths,
		index:              index,
	}
}

// Authorities returns a copy of the authority list.
func (p *Principal) Authorities() []string {
	out := make([]string, len(p.authorities))
	copy(out, p.authorities)
	return out
}

func (p *Principal) HasAuthority(a string) bool {
	_, ok := p.index[a]
	return ok
}

func (p *Principal) HasAnyAuthority(as ...string) bool {
	for _, a := range as {
		if p.HasAuthority(a) {
			return true
		}
	}
	return false
}

func (p *Principal) IsActive() bool { return p.Status == model.UserStatusActive }
