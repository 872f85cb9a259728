package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/config"
	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// AuthService 认证服务
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{
		cfg:       cfg,
		adminRepo: adminRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// JWTClaims JWT 声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := JWTClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("无效的 token")
}

// Login 管理员登录
// 用户名统一转小写后匹配
func (s *AuthService) Login(username, password string) (*models.Admin, string, time.Time, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	if err := s.VerifyPassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	// 更新最后登录时间
	now := time.Now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.Update(admin); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))

	return admin, token, expiresAt, nil
}

// RegisterInput 注册新管理员的入参
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Register 创建新管理员账号
// 调用方需先通过中间件确认当前登录者为超级管理员
func (s *AuthService) Register(input RegisterInput) (*models.Admin, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = constants.RoleAdmin
	}

	if !usernamePattern.MatchString(username) {
		return nil, NewValidationError("用户名只能包含小写字母、数字和下划线，长度 3-32 位")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewValidationError("邮箱格式不正确")
	}
	if _, ok := constants.ValidRoles[role]; !ok {
		return nil, NewValidationError("无效的角色")
	}
	if err := s.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if existing, err := s.adminRepo.GetByUsername(username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateRecord
	}
	if existing, err := s.adminRepo.GetByEmail(email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateRecord
	}

	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.adminRepo.Create(admin); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return admin, nil
}

// GetProfile 获取管理员资料
func (s *AuthService) GetProfile(adminID uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	return admin, nil
}

// UpdateProfileInput 更新资料的入参，空字段保持不变
type UpdateProfileInput struct {
	Username string
	Email    string
}

// UpdateProfile 更新管理员资料
func (s *AuthService) UpdateProfile(adminID uint, input UpdateProfileInput) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}

	if username := strings.ToLower(strings.TrimSpace(input.Username)); username != "" && username != admin.Username {
		if !usernamePattern.MatchString(username) {
			return nil, NewValidationError("用户名只能包含小写字母、数字和下划线，长度 3-32 位")
		}
		taken, err := s.adminRepo.ExistsOtherWithUsername(admin.ID, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateRecord
		}
		admin.Username = username
	}

	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" && email != admin.Email {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, NewValidationError("邮箱格式不正确")
		}
		taken, err := s.adminRepo.ExistsOtherWithEmail(admin.ID, email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateRecord
		}
		admin.Email = email
	}

	if err := s.adminRepo.Update(admin); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))
	return admin, nil
}

// ChangePassword 修改管理员密码
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}

	if err := s.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	admin.PasswordHash = hashedPassword
	if err := s.adminRepo.Update(admin); err != nil {
		return err
	}
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))
	return nil
}

// Logout 注销登录
// 令牌为无状态 JWT，服务端仅清理鉴权快照，客户端负责丢弃令牌
func (s *AuthService) Logout(adminID uint) error {
	return cache.DelAdminAuthState(context.Background(), adminID)
}
