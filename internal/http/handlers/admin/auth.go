package admin

import (
	"time"

	"github.com/certvault/internal/http/response"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminView 管理员信息视图
type AdminView struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func buildAdminView(admin *models.Admin) AdminView {
	return AdminView{
		ID:          admin.ID,
		Username:    admin.Username,
		Email:       admin.Email,
		Role:        admin.Role,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
	}
}

type loginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "用户名和密码不能为空")
		return
	}

	if err := h.CaptchaService.Verify(req.CaptchaID, req.CaptchaCode); err != nil {
		respondServiceError(c, err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("admin_login", "admin_id", admin.ID, "username", admin.Username)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"admin":      buildAdminView(admin),
	})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Register 创建新管理员，仅超级管理员可用（由 RBAC 中间件保障）
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "用户名、邮箱和密码不能为空")
		return
	}

	admin, err := h.AuthService.Register(service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	operatorID, _ := getAdminID(c)
	requestLog(c).Infow("admin_registered",
		"admin_id", admin.ID,
		"username", admin.Username,
		"role", admin.Role,
		"operator_id", operatorID,
		"operator_role", getAdminRole(c),
	)
	response.Created(c, "管理员创建成功", buildAdminView(admin))
}

// GetProfile 获取当前管理员资料
func (h *Handler) GetProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	admin, err := h.AuthService.GetProfile(adminID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, buildAdminView(admin))
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UpdateProfile 更新当前管理员资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数格式错误")
		return
	}

	admin, err := h.AuthService.UpdateProfile(adminID, service.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "资料更新成功", buildAdminView(admin))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改当前管理员密码
func (h *Handler) ChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "原密码和新密码不能为空")
		return
	}

	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("admin_password_changed", "admin_id", adminID)
	response.SuccessWithMsg(c, "密码修改成功", nil)
}

// Logout 注销登录
func (h *Handler) Logout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	if err := h.AuthService.Logout(adminID); err != nil {
		requestLog(c).Warnw("admin_logout_cache_clear_failed", "admin_id", adminID, "error", err)
	}
	response.SuccessWithMsg(c, "已退出登录", nil)
}
