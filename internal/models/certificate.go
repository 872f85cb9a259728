package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Certificate 证书记录表
// 学号全局唯一，统一以大写存储；唯一索引是并发上传冲突的最终裁决
type Certificate struct {
	ID           uint               `gorm:"primarykey" json:"id"`                    // 主键
	RollNumber   string             `gorm:"uniqueIndex;not null" json:"roll_number"` // 学号（大写）
	PdfURL       string             `gorm:"not null" json:"pdf_url"`                 // PDF 访问地址
	FileName     string             `gorm:"not null" json:"file_name"`               // 存储文件名
	StorageKey   string             `gorm:"not null" json:"-"`                       // 对象存储 key（删除文件时使用）
	UploadedByID uint               `gorm:"not null;index" json:"uploaded_by_id"`    // 上传管理员 ID
	UploadedBy   *Admin             `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	Detail       *CertificateDetail `gorm:"foreignKey:CertificateID" json:"detail,omitempty"`
	CreatedAt    time.Time          `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt    time.Time          `json:"updated_at"`              // 更新时间
}

// TableName 指定表名
func (Certificate) TableName() string {
	return "certificates"
}

// CertificateDetail 证书扩展信息表
// 部分院系的证书带有成绩等附加字段，以可选扩展行建模而非松散字段
type CertificateDetail struct {
	ID            uint                `gorm:"primarykey" json:"-"`
	CertificateID uint                `gorm:"uniqueIndex;not null" json:"-"`
	StudentName   string              `json:"student_name,omitempty"` // 学生姓名
	Category      string              `json:"category,omitempty"`     // 分类（madrasa/school/coaching/college）
	Course        string              `json:"course,omitempty"`       // 课程
	Year          string              `json:"year,omitempty"`         // 年份
	Semester      string              `json:"semester,omitempty"`     // 学期
	Grade         string              `json:"grade,omitempty"`        // 等级
	Percentage    decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"percentage,omitempty"` // 百分比成绩
}

// TableName 指定表名
func (CertificateDetail) TableName() string {
	return "certificate_details"
}

// Empty 判断扩展信息是否全部为空
func (d *CertificateDetail) Empty() bool {
	if d == nil {
		return true
	}
	return d.StudentName == "" && d.Category == "" && d.Course == "" &&
		d.Year == "" && d.Semester == "" && d.Grade == "" && !d.Percentage.Valid
}

// NormalizeRollNumber 统一学号格式（去空白并转大写）
func NormalizeRollNumber(rollNumber string) string {
	return strings.ToUpper(strings.TrimSpace(rollNumber))
}
