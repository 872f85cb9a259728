package constants

// 管理员角色常量
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// 证书分类常量
const (
	CategoryMadrasa  = "madrasa"
	CategorySchool   = "school"
	CategoryCoaching = "coaching"
	CategoryCollege  = "college"
)

// ValidCategories 允许的证书分类集合
var ValidCategories = map[string]struct{}{
	CategoryMadrasa:  {},
	CategorySchool:   {},
	CategoryCoaching: {},
	CategoryCollege:  {},
}

// ValidRoles 允许的管理员角色集合
var ValidRoles = map[string]struct{}{
	RoleAdmin:      {},
	RoleSuperAdmin: {},
}

// 请求上下文键
const (
	ContextKeyAdminID   = "admin_id"
	ContextKeyUsername  = "username"
	ContextKeyAdminRole = "admin_role"
	ContextKeyRequestID = "request_id"
)

// 公开查询接口的结果条数上限
const (
	RecentResultsDefaultLimit = 10
	RecentResultsMaxLimit     = 20
)
