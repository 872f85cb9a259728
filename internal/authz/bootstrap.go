package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 普通管理员能操作证书与自己的账号，创建新管理员仅超级管理员可用
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "admin",
			Policies: []Policy{
				{Object: "/auth/me", Action: "GET"},
				{Object: "/auth/profile", Action: "PUT"},
				{Object: "/auth/change-password", Action: "POST"},
				{Object: "/auth/logout", Action: "POST"},
				{Object: "/certificates", Action: "*"},
				{Object: "/certificates/:id", Action: "*"},
				{Object: "/certificates/upload", Action: "POST"},
				{Object: "/certificates/export", Action: "GET"},
				{Object: "/certificates/stats", Action: "GET"},
			},
		},
		{
			Role:     "super_admin",
			Inherits: []string{"admin"},
			Policies: []Policy{
				{Object: "/auth/register", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}

	return nil
}
