package auth

import "strings"

// 角色
const (
	RoleAdmin       = "admin"
	RoleMitarbeiter = "mitarbeiter"
	RoleKunde       = "kunde"
)

// RoleService 已知角色集合
type RoleService struct {
	roles []string
}

// NewRoleService 创建角色服务，roles 为空时使用默认角色
func NewRoleService(roles ...string) *RoleService {
	if len(roles) == 0 {
		roles = []string{RoleAdmin, RoleMitarbeiter, RoleKunde}
	}
	return &RoleService{roles: roles}
}

// Roles 返回全部角色
func (s *RoleService) Roles() []string {
	return append([]string(nil), s.roles...)
}

// Normalize 大小写不敏感地映射为规范角色名，未知角色被丢弃
func (s *RoleService) Normalize(roles []string) []string {
	result := make([]string, 0, len(roles))
	for _, r := range roles {
		for _, known := range s.roles {
			if strings.EqualFold(r, known) {
				result = append(result, known)
				break
			}
		}
	}
	return result
}
