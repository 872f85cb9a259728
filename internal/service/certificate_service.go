package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/config"
	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"
	"github.com/certvault/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CertificateService 证书管理服务
type CertificateService struct {
	cfg      *config.Config
	certRepo repository.CertificateRepository
	store    storage.ObjectStorage
}

// NewCertificateService 创建证书管理服务实例
func NewCertificateService(cfg *config.Config, certRepo repository.CertificateRepository, store storage.ObjectStorage) *CertificateService {
	return &CertificateService{
		cfg:      cfg,
		certRepo: certRepo,
		store:    store,
	}
}

// List 分页查询证书记录
func (s *CertificateService) List(filter repository.CertificateListFilter) ([]models.Certificate, int64, error) {
	return s.certRepo.List(filter)
}

// Get 根据 ID 获取证书记录
func (s *CertificateService) Get(id uint) (*models.Certificate, error) {
	cert, err := s.certRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrNotFound
	}
	return cert, nil
}

// UpdateCertificateInput 更新证书记录的入参，空字段保持不变
type UpdateCertificateInput struct {
	RollNumber string
	Detail     *CertificateDetailInput
}

// Update 更新证书记录的学号与扩展信息
// PDF 文件本身不可替换，需要换文件时删除后重新上传
func (s *CertificateService) Update(ctx context.Context, id uint, input UpdateCertificateInput) (*models.Certificate, error) {
	cert, err := s.certRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrNotFound
	}

	oldRollNumber := cert.RollNumber
	if raw := strings.TrimSpace(input.RollNumber); raw != "" {
		rollNumber, err := ValidateRollNumber(raw)
		if err != nil {
			return nil, err
		}
		if rollNumber != cert.RollNumber {
			taken, err := s.certRepo.ExistsOtherWithRollNumber(cert.ID, rollNumber)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrDuplicateRecord
			}
			cert.RollNumber = rollNumber
		}
	}

	// 先完成扩展信息校验，再写库，避免部分更新落盘
	var detail *models.CertificateDetail
	if input.Detail != nil {
		detail, err = s.mergeDetail(cert, input.Detail)
		if err != nil {
			return nil, err
		}
	}

	if err := s.certRepo.Update(cert); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}

	if detail != nil {
		if err := s.certRepo.SaveDetail(detail); err != nil {
			return nil, err
		}
		cert.Detail = detail
	}

	// 清理新旧学号的查询缓存
	_ = cache.DelResult(ctx, oldRollNumber)
	_ = cache.DelResult(ctx, cert.RollNumber)

	return cert, nil
}

// mergeDetail 将入参合并到已有扩展信息，空字段保持不变
func (s *CertificateService) mergeDetail(cert *models.Certificate, input *CertificateDetailInput) (*models.CertificateDetail, error) {
	detail := cert.Detail
	if detail == nil {
		detail = &models.CertificateDetail{CertificateID: cert.ID}
	}

	if v := strings.TrimSpace(input.StudentName); v != "" {
		detail.StudentName = v
	}
	if v := strings.ToLower(strings.TrimSpace(input.Category)); v != "" {
		if _, ok := constants.ValidCategories[v]; !ok {
			return nil, NewValidationError("无效的证书类别")
		}
		detail.Category = v
	}
	if v := strings.TrimSpace(input.Course); v != "" {
		detail.Course = v
	}
	if v := strings.TrimSpace(input.Year); v != "" {
		detail.Year = v
	}
	if v := strings.TrimSpace(input.Semester); v != "" {
		detail.Semester = v
	}
	if v := strings.TrimSpace(input.Grade); v != "" {
		detail.Grade = v
	}
	if raw := strings.TrimSpace(input.Percentage); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, NewValidationError("百分比格式不正确")
		}
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, NewValidationError("百分比必须在 0 到 100 之间")
		}
		detail.Percentage = decimal.NewNullDecimal(value)
	}

	if detail.ID == 0 && detail.Empty() {
		return nil, nil
	}
	return detail, nil
}

// Delete 删除证书记录
// 先尝试删除存储对象，失败仅告警，保证记录总能删除
func (s *CertificateService) Delete(ctx context.Context, id uint) error {
	cert, err := s.certRepo.GetByID(id)
	if err != nil {
		return err
	}
	if cert == nil {
		return ErrNotFound
	}

	if cert.StorageKey != "" {
		if err := s.store.Remove(ctx, cert.StorageKey); err != nil {
			logger.Warnw("certificate_object_remove_failed",
				"certificate_id", cert.ID,
				"key", cert.StorageKey,
				"error", err,
			)
		}
	}

	if err := s.certRepo.Delete(cert.ID); err != nil {
		return err
	}

	_ = cache.DelResult(ctx, cert.RollNumber)

	logger.Infow("certificate_deleted", "certificate_id", cert.ID, "roll_number", cert.RollNumber)
	return nil
}

// Stats 证书统计信息
type Stats struct {
	Total        int64 `json:"total"`
	RecentGrowth int64 `json:"recent_growth"`
}

// GetStats 统计证书总数与最近 30 天新增数
func (s *CertificateService) GetStats() (*Stats, error) {
	total, err := s.certRepo.Count()
	if err != nil {
		return nil, err
	}
	recent, err := s.certRepo.CountCreatedSince(time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, RecentGrowth: recent}, nil
}

// ExportXLSX 导出全部证书记录为 Excel 文件
func (s *CertificateService) ExportXLSX() ([]byte, error) {
	certs, err := s.certRepo.ListAll()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	const sheet = "Certificates"
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{"ID", "学号", "学生姓名", "类别", "课程", "年份", "学期", "成绩", "百分比", "PDF 地址", "上传人", "创建时间"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, cert := range certs {
		row := []interface{}{
			cert.ID,
			cert.RollNumber,
			"", "", "", "", "", "", "",
			cert.PdfURL,
			"",
			cert.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if cert.Detail != nil {
			row[2] = cert.Detail.StudentName
			row[3] = cert.Detail.Category
			row[4] = cert.Detail.Course
			row[5] = cert.Detail.Year
			row[6] = cert.Detail.Semester
			row[7] = cert.Detail.Grade
			if cert.Detail.Percentage.Valid {
				row[8] = cert.Detail.Percentage.Decimal.String()
			}
		}
		if cert.UploadedBy != nil {
			row[10] = cert.UploadedBy.Username
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
