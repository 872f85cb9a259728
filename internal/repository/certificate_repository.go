package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/certvault/internal/models"

	"gorm.io/gorm"
)

// CertificateRepository 证书记录数据访问接口
type CertificateRepository interface {
	GetByID(id uint) (*models.Certificate, error)
	GetByRollNumber(rollNumber string) (*models.Certificate, error)
	ExistsByRollNumber(rollNumber string) (bool, error)
	ExistsOtherWithRollNumber(id uint, rollNumber string) (bool, error)
	List(filter CertificateListFilter) ([]models.Certificate, int64, error)
	ListAll() ([]models.Certificate, error)
	Recent(limit int) ([]models.Certificate, error)
	Count() (int64, error)
	CountCreatedSince(since time.Time) (int64, error)
	Create(cert *models.Certificate) error
	Update(cert *models.Certificate) error
	SaveDetail(detail *models.CertificateDetail) error
	Delete(id uint) error
}

// GormCertificateRepository GORM 实现
type GormCertificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository 创建证书仓库
func NewCertificateRepository(db *gorm.DB) *GormCertificateRepository {
	return &GormCertificateRepository{db: db}
}

// GetByID 根据 ID 获取证书记录（含上传人与扩展信息）
func (r *GormCertificateRepository) GetByID(id uint) (*models.Certificate, error) {
	var cert models.Certificate
	err := r.db.Preload("UploadedBy").Preload("Detail").First(&cert, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// GetByRollNumber 根据学号精确查询证书记录
// 调用方负责先归一化学号
func (r *GormCertificateRepository) GetByRollNumber(rollNumber string) (*models.Certificate, error) {
	var cert models.Certificate
	err := r.db.Preload("UploadedBy").Preload("Detail").
		Where("roll_number = ?", rollNumber).
		First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// ExistsByRollNumber 判断学号是否已有证书记录
func (r *GormCertificateRepository) ExistsByRollNumber(rollNumber string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Certificate{}).
		Where("roll_number = ?", rollNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsOtherWithRollNumber 判断学号是否已被其他记录占用
func (r *GormCertificateRepository) ExistsOtherWithRollNumber(id uint, rollNumber string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Certificate{}).
		Where("roll_number = ? AND id <> ?", rollNumber, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 按创建时间倒序分页查询证书记录
func (r *GormCertificateRepository) List(filter CertificateListFilter) ([]models.Certificate, int64, error) {
	query := r.db.Model(&models.Certificate{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("roll_number LIKE ?", "%"+strings.ToUpper(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	certs := make([]models.Certificate, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("UploadedBy").Preload("Detail").
		Order("created_at DESC").
		Find(&certs).Error
	if err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

// ListAll 查询全部证书记录（导出场景）
func (r *GormCertificateRepository) ListAll() ([]models.Certificate, error) {
	certs := make([]models.Certificate, 0)
	err := r.db.Preload("UploadedBy").Preload("Detail").
		Order("created_at DESC").
		Find(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

// Recent 查询最近创建的证书记录
func (r *GormCertificateRepository) Recent(limit int) ([]models.Certificate, error) {
	if limit <= 0 {
		limit = 10
	}
	certs := make([]models.Certificate, 0, limit)
	err := r.db.Preload("Detail").
		Order("created_at DESC").
		Limit(limit).
		Find(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

// Count 统计证书记录总数
func (r *GormCertificateRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Certificate{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountCreatedSince 统计指定时间之后创建的证书记录数
func (r *GormCertificateRepository) CountCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Certificate{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建证书记录
// 学号唯一索引冲突由 IsDuplicateKeyError 识别
func (r *GormCertificateRepository) Create(cert *models.Certificate) error {
	return r.db.Create(cert).Error
}

// Update 更新证书记录
func (r *GormCertificateRepository) Update(cert *models.Certificate) error {
	return r.db.Save(cert).Error
}

// SaveDetail 写入或更新证书扩展信息
func (r *GormCertificateRepository) SaveDetail(detail *models.CertificateDetail) error {
	return r.db.Save(detail).Error
}

// Delete 删除证书记录及其扩展信息
func (r *GormCertificateRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("certificate_id = ?", id).Delete(&models.CertificateDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Certificate{}, id).Error
	})
}

// IsDuplicateKeyError 判断是否为唯一索引冲突
// 并发上传相同学号时，落败一方以此识别冲突
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
