package public

import (
	"strconv"

	handlershared "github.com/certvault/internal/http/handlers/shared"
	"github.com/certvault/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Search 按学号查询成绩单
// 学号取路径参数，也接受 rollNumber 查询参数
func (h *Handler) Search(c *gin.Context) {
	rollNumber := c.Param("rollNumber")
	if rollNumber == "" {
		rollNumber = c.Query("rollNumber")
	}
	view, err := h.LookupService.Search(c.Request.Context(), rollNumber)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, view)
}

type verifyRollRequest struct {
	RollNumber string `json:"rollNumber"`
}

// Verify 确认学号是否存在成绩单
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数格式错误")
		return
	}
	exists, err := h.LookupService.VerifyRoll(req.RollNumber)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"exists": exists})
}

// Recent 查询最近上传的成绩单
func (h *Handler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	views, err := h.LookupService.Recent(limit)
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, views)
}

// Stats 公开统计信息
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.LookupService.PublicStats()
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

// Captcha 获取登录图片验证码
func (h *Handler) Captcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}
	challenge, err := h.CaptchaService.Generate()
	if err != nil {
		handlershared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
