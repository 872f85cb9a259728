package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	handlershared "github.com/certvault/internal/http/handlers/shared"
	"github.com/certvault/internal/http/response"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"
	"github.com/certvault/internal/service"

	"github.com/gin-gonic/gin"
)

// CertificateView 证书记录视图（管理端）
type CertificateView struct {
	ID         uint                  `json:"id"`
	RollNumber string                `json:"roll_number"`
	PdfURL     string                `json:"pdf_url"`
	FileName   string                `json:"file_name"`
	UploadedBy string                `json:"uploaded_by,omitempty"`
	Detail     *CertificateDetailDTO `json:"detail,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// CertificateDetailDTO 证书扩展信息
type CertificateDetailDTO struct {
	StudentName string `json:"student_name,omitempty"`
	Category    string `json:"category,omitempty"`
	Course      string `json:"course,omitempty"`
	Year        string `json:"year,omitempty"`
	Semester    string `json:"semester,omitempty"`
	Grade       string `json:"grade,omitempty"`
	Percentage  string `json:"percentage,omitempty"`
}

func buildCertificateView(cert *models.Certificate) CertificateView {
	view := CertificateView{
		ID:         cert.ID,
		RollNumber: cert.RollNumber,
		PdfURL:     cert.PdfURL,
		FileName:   cert.FileName,
		CreatedAt:  cert.CreatedAt,
		UpdatedAt:  cert.UpdatedAt,
	}
	if cert.UploadedBy != nil {
		view.UploadedBy = cert.UploadedBy.Username
	}
	if cert.Detail != nil && !cert.Detail.Empty() {
		dto := &CertificateDetailDTO{
			StudentName: cert.Detail.StudentName,
			Category:    cert.Detail.Category,
			Course:      cert.Detail.Course,
			Year:        cert.Detail.Year,
			Semester:    cert.Detail.Semester,
			Grade:       cert.Detail.Grade,
		}
		if cert.Detail.Percentage.Valid {
			dto.Percentage = cert.Detail.Percentage.Decimal.String()
		}
		view.Detail = dto
	}
	return view
}

// Upload 上传成绩单图片并生成 PDF
// multipart 表单：rollNumber 与 certificates 文件字段，可附带扩展信息字段
func (h *Handler) Upload(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "请求必须为 multipart 表单")
		return
	}

	files := form.File["certificates"]
	input := service.UploadInput{
		RollNumber:   c.PostForm("rollNumber"),
		Files:        files,
		UploadedByID: adminID,
		Detail: &service.CertificateDetailInput{
			StudentName: c.PostForm("studentName"),
			Category:    c.PostForm("category"),
			Course:      c.PostForm("course"),
			Year:        c.PostForm("year"),
			Semester:    c.PostForm("semester"),
			Grade:       c.PostForm("grade"),
			Percentage:  c.PostForm("percentage"),
		},
	}

	cert, err := h.UploadService.Upload(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, "证书上传成功", buildCertificateView(cert))
}

// List 分页查询证书记录
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	certs, total, err := h.CertificateService.List(repository.CertificateListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := make([]CertificateView, 0, len(certs))
	for i := range certs {
		views = append(views, buildCertificateView(&certs[i]))
	}
	response.SuccessWithPage(c, views, response.NewPagination(page, pageSize, total))
}

// Get 查询单条证书记录
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "无效的证书 ID")
		return
	}

	cert, err := h.CertificateService.Get(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, buildCertificateView(cert))
}

type updateCertificateRequest struct {
	RollNumber  string `json:"roll_number"`
	StudentName string `json:"student_name"`
	Category    string `json:"category"`
	Course      string `json:"course"`
	Year        string `json:"year"`
	Semester    string `json:"semester"`
	Grade       string `json:"grade"`
	Percentage  string `json:"percentage"`
}

// Update 更新证书记录
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "无效的证书 ID")
		return
	}

	var req updateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数格式错误")
		return
	}

	cert, err := h.CertificateService.Update(c.Request.Context(), uint(id), service.UpdateCertificateInput{
		RollNumber: req.RollNumber,
		Detail: &service.CertificateDetailInput{
			StudentName: req.StudentName,
			Category:    req.Category,
			Course:      req.Course,
			Year:        req.Year,
			Semester:    req.Semester,
			Grade:       req.Grade,
			Percentage:  req.Percentage,
		},
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "证书更新成功", buildCertificateView(cert))
}

// Delete 删除证书记录
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "无效的证书 ID")
		return
	}

	if err := h.CertificateService.Delete(c.Request.Context(), uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "证书删除成功", nil)
}

// Stats 证书统计信息
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.CertificateService.GetStats()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

// Export 导出全部证书记录为 Excel 文件
func (h *Handler) Export(c *gin.Context) {
	data, err := h.CertificateService.ExportXLSX()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("certificates-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
