package models

import (
	"strings"

	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultAdmin 初始化默认超级管理员账号
// 仅在管理员表为空时创建
func InitDefaultAdmin(username, email, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         constants.RoleSuperAdmin,
	}

	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == "admin123" {
		logger.Warnw("default_admin_created_with_default_password", "username", admin.Username)
		logger.Warnw("default_admin_password_change_required", "username", admin.Username)
	} else {
		logger.Warnw("default_admin_created", "username", admin.Username, "password_hidden", true)
	}

	return nil
}
