package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员表
// 用户名与邮箱全局唯一，统一以小写存储
type Admin struct {
	ID           uint           `gorm:"primarykey" json:"id"`                 // 主键
	Username     string         `gorm:"uniqueIndex;not null" json:"username"` // 管理员账号（小写）
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`    // 邮箱（小写）
	PasswordHash string         `gorm:"not null" json:"-"`                    // 密码哈希（不返回给前端）
	Role         string         `gorm:"not null;index" json:"role"`           // 角色（admin / super_admin）
	LastLoginAt  *time.Time     `json:"last_login_at"`                        // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                           // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
