package service

import (
	"context"
	"time"

	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"
)

// LookupService 公开查询服务
// 面向未登录访客，只暴露结果视图，不暴露存储与上传人信息
type LookupService struct {
	certRepo repository.CertificateRepository
}

// NewLookupService 创建公开查询服务实例
func NewLookupService(certRepo repository.CertificateRepository) *LookupService {
	return &LookupService{certRepo: certRepo}
}

// ResultView 公开查询结果视图
type ResultView struct {
	RollNumber string            `json:"roll_number"`
	PdfURL     string            `json:"pdf_url"`
	FileName   string            `json:"file_name"`
	Detail     *ResultDetailView `json:"detail,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// ResultDetailView 公开结果的扩展信息视图
type ResultDetailView struct {
	StudentName string `json:"student_name,omitempty"`
	Category    string `json:"category,omitempty"`
	Course      string `json:"course,omitempty"`
	Year        string `json:"year,omitempty"`
	Semester    string `json:"semester,omitempty"`
	Grade       string `json:"grade,omitempty"`
	Percentage  string `json:"percentage,omitempty"`
}

func buildResultView(cert *models.Certificate) *ResultView {
	view := &ResultView{
		RollNumber: cert.RollNumber,
		PdfURL:     cert.PdfURL,
		FileName:   cert.FileName,
		UploadedAt: cert.CreatedAt,
	}
	if cert.Detail != nil && !cert.Detail.Empty() {
		detail := &ResultDetailView{
			StudentName: cert.Detail.StudentName,
			Category:    cert.Detail.Category,
			Course:      cert.Detail.Course,
			Year:        cert.Detail.Year,
			Semester:    cert.Detail.Semester,
			Grade:       cert.Detail.Grade,
		}
		if cert.Detail.Percentage.Valid {
			detail.Percentage = cert.Detail.Percentage.Decimal.String()
		}
		view.Detail = detail
	}
	return view
}

// Search 按学号查询成绩单
// 命中结果写入短时缓存，更新或删除时由管理服务清理
func (s *LookupService) Search(ctx context.Context, rawRollNumber string) (*ResultView, error) {
	rollNumber, err := ValidateRollNumber(rawRollNumber)
	if err != nil {
		return nil, err
	}

	var cached ResultView
	if hit, err := cache.GetResult(ctx, rollNumber, &cached); err == nil && hit {
		return &cached, nil
	}

	cert, err := s.certRepo.GetByRollNumber(rollNumber)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrNotFound
	}

	view := buildResultView(cert)
	_ = cache.SetResult(ctx, rollNumber, view)
	return view, nil
}

// VerifyRoll 仅确认学号是否存在成绩单，不返回内容
func (s *LookupService) VerifyRoll(rawRollNumber string) (bool, error) {
	rollNumber, err := ValidateRollNumber(rawRollNumber)
	if err != nil {
		return false, err
	}
	return s.certRepo.ExistsByRollNumber(rollNumber)
}

// Recent 查询最近上传的成绩单
// limit 超出范围时回落到默认值
func (s *LookupService) Recent(limit int) ([]*ResultView, error) {
	if limit <= 0 || limit > constants.RecentResultsMaxLimit {
		limit = constants.RecentResultsDefaultLimit
	}
	certs, err := s.certRepo.Recent(limit)
	if err != nil {
		return nil, err
	}
	views := make([]*ResultView, 0, len(certs))
	for i := range certs {
		views = append(views, buildResultView(&certs[i]))
	}
	return views, nil
}

// PublicStats 公开统计信息
func (s *LookupService) PublicStats() (map[string]int64, error) {
	total, err := s.certRepo.Count()
	if err != nil {
		return nil, err
	}
	recent, err := s.certRepo.CountCreatedSince(time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"total":         total,
		"recent_growth": recent,
	}, nil
}
