package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/config"
	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"
	"github.com/certvault/internal/storage"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var rollNumberPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// UploadService 证书上传服务
// 将多张成绩单图片合并为单个 PDF 并写入对象存储
type UploadService struct {
	cfg      *config.Config
	certRepo repository.CertificateRepository
	store    storage.ObjectStorage
}

// NewUploadService 创建证书上传服务实例
func NewUploadService(cfg *config.Config, certRepo repository.CertificateRepository, store storage.ObjectStorage) *UploadService {
	return &UploadService{
		cfg:      cfg,
		certRepo: certRepo,
		store:    store,
	}
}

// CertificateDetailInput 证书扩展信息入参
type CertificateDetailInput struct {
	StudentName string
	Category    string
	Course      string
	Year        string
	Semester    string
	Grade       string
	Percentage  string
}

// UploadInput 证书上传入参
type UploadInput struct {
	RollNumber   string
	Files        []*multipart.FileHeader
	UploadedByID uint
	Detail       *CertificateDetailInput
}

// ValidateRollNumber 归一化并校验学号
func ValidateRollNumber(raw string) (string, error) {
	rollNumber := models.NormalizeRollNumber(raw)
	if rollNumber == "" {
		return "", NewValidationError("学号不能为空")
	}
	if !rollNumberPattern.MatchString(rollNumber) {
		return "", NewValidationError("学号只能包含字母和数字")
	}
	return rollNumber, nil
}

// Upload 执行完整的上传流水线
// 校验、暂存、合并 PDF、写入对象存储、落库，临时文件在所有路径上清理
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (*models.Certificate, error) {
	rollNumber, err := ValidateRollNumber(input.RollNumber)
	if err != nil {
		return nil, err
	}

	if len(input.Files) == 0 {
		return nil, NewValidationError("至少需要上传一张图片")
	}
	if s.cfg.Upload.MaxFiles > 0 && len(input.Files) > s.cfg.Upload.MaxFiles {
		return nil, NewValidationError(fmt.Sprintf("一次最多上传 %d 张图片", s.cfg.Upload.MaxFiles))
	}

	exists, err := s.certRepo.ExistsByRollNumber(rollNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRecord
	}

	detail, err := s.buildDetail(input.Detail)
	if err != nil {
		return nil, err
	}

	// 逐个校验并暂存到临时目录，保持提交顺序
	tempPaths := make([]string, 0, len(input.Files))
	defer func() {
		for _, p := range tempPaths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warnw("temp_file_cleanup_failed", "path", p, "error", err)
			}
		}
	}()

	for _, file := range input.Files {
		tempPath, err := s.saveTempFile(file)
		if err != nil {
			return nil, err
		}
		tempPaths = append(tempPaths, tempPath)
	}

	// 合并为单个 PDF，每张图片一页
	images := make([]pdfImage, 0, len(tempPaths))
	readers := make([]*os.File, 0, len(tempPaths))
	defer func() {
		for _, f := range readers {
			_ = f.Close()
		}
	}()
	for i, p := range tempPaths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		readers = append(readers, f)
		images = append(images, pdfImage{Name: input.Files[i].Filename, Reader: f})
	}

	pdfBytes, pages, err := buildPDF(images)
	if err != nil {
		return nil, err
	}

	// 写入对象存储
	fileName := fmt.Sprintf("%s-%s.pdf", rollNumber, uuid.New().String())
	key := fileName
	if folder := strings.Trim(s.cfg.Storage.Folder, "/"); folder != "" {
		key = folder + "/" + fileName
	}
	pdfURL, err := s.store.Put(ctx, key, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	cert := &models.Certificate{
		RollNumber:   rollNumber,
		PdfURL:       pdfURL,
		FileName:     fileName,
		StorageKey:   key,
		UploadedByID: input.UploadedByID,
	}
	if err := s.certRepo.Create(cert); err != nil {
		// 并发落败时回收刚上传的对象，避免孤儿文件
		if removeErr := s.store.Remove(ctx, key); removeErr != nil {
			logger.Warnw("orphan_object_cleanup_failed", "key", key, "error", removeErr)
		}
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}

	if detail != nil {
		detail.CertificateID = cert.ID
		if err := s.certRepo.SaveDetail(detail); err != nil {
			logger.Warnw("certificate_detail_save_failed", "certificate_id", cert.ID, "error", err)
		} else {
			cert.Detail = detail
		}
	}

	_ = cache.DelResult(ctx, rollNumber)

	logger.Infow("certificate_uploaded",
		"roll_number", rollNumber,
		"pages", pages,
		"size", len(pdfBytes),
		"uploaded_by", input.UploadedByID,
	)
	return cert, nil
}

// buildDetail 校验并构建扩展信息，全部字段为空时返回 nil
func (s *UploadService) buildDetail(input *CertificateDetailInput) (*models.CertificateDetail, error) {
	if input == nil {
		return nil, nil
	}

	detail := &models.CertificateDetail{
		StudentName: strings.TrimSpace(input.StudentName),
		Category:    strings.ToLower(strings.TrimSpace(input.Category)),
		Course:      strings.TrimSpace(input.Course),
		Year:        strings.TrimSpace(input.Year),
		Semester:    strings.TrimSpace(input.Semester),
		Grade:       strings.TrimSpace(input.Grade),
	}

	if detail.Category != "" {
		if _, ok := constants.ValidCategories[detail.Category]; !ok {
			return nil, NewValidationError("无效的证书类别")
		}
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

	if detail.Empty() {
		return nil, nil
	}
	return detail, nil
}

// saveTempFile 校验单个上传文件并暂存到临时目录
func (s *UploadService) saveTempFile(file *multipart.FileHeader) (string, error) {
	if s.cfg.Upload.MaxSize > 0 && file.Size > s.cfg.Upload.MaxSize {
		return "", NewInvalidFileError(fmt.Sprintf("文件 %s 超过大小限制（最大 %d MB）", file.Filename, s.cfg.Upload.MaxSize/1024/1024))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if len(s.cfg.Upload.AllowedExtensions) > 0 {
		if ext == "" || !isAllowedExtension(ext, s.cfg.Upload.AllowedExtensions) {
			return "", NewInvalidFileError(fmt.Sprintf("文件扩展名不被允许: %s", ext))
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 读取文件头部识别实际 MIME 类型，不信任客户端声明
	buffer := make([]byte, 512)
	if _, err := src.Read(buffer); err != nil && err != io.EOF {
		return "", err
	}
	if _, err := src.Seek(0, 0); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(buffer)
	if len(s.cfg.Upload.AllowedTypes) > 0 {
		allowed := false
		for _, t := range s.cfg.Upload.AllowedTypes {
			if strings.EqualFold(contentType, t) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", NewInvalidFileError(fmt.Sprintf("文件类型不被允许: %s", contentType))
		}
	}

	// 确认能解码为图片，损坏的文件在此拦截
	if _, _, err := image.DecodeConfig(src); err != nil {
		return "", NewInvalidFileError(fmt.Sprintf("无法解析图片: %s", file.Filename))
	}
	if _, err := src.Seek(0, 0); err != nil {
		return "", err
	}

	tempDir := s.cfg.Upload.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", err
	}

	tempPath := filepath.Join(tempDir, fmt.Sprintf("%s%s", uuid.New().String(), ext))
	dst, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	return tempPath, nil
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}
