package main

import (
	"github.com/certvault/internal/config"
	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/models"

	"github.com/shopspring/decimal"
)

// 开发环境演示数据，PDF 地址指向占位对象
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.InitDefaultAdmin("admin", "admin@example.com", "Admin123"); err != nil {
		stdLog.Fatalf("Failed to init default admin: %v", err)
	}

	var admin models.Admin
	if err := models.DB.Where("username = ?", "admin").First(&admin).Error; err != nil {
		stdLog.Fatalf("Failed to load default admin: %v", err)
	}

	certificates := []struct {
		cert   models.Certificate
		detail models.CertificateDetail
	}{
		{
			cert: models.Certificate{
				RollNumber:   "MD2024001",
				PdfURL:       "https://example.com/certificates/MD2024001.pdf",
				FileName:     "MD2024001.pdf",
				StorageKey:   "certificates/MD2024001.pdf",
				UploadedByID: admin.ID,
			},
			detail: models.CertificateDetail{
				StudentName: "Abdul Karim",
				Category:    constants.CategoryMadrasa,
				Course:      "Dakhil",
				Year:        "2024",
				Semester:    "Final",
				Grade:       "A+",
				Percentage:  decimal.NewNullDecimal(decimal.NewFromFloat(92.50)),
			},
		},
		{
			cert: models.Certificate{
				RollNumber:   "SC2024015",
				PdfURL:       "https://example.com/certificates/SC2024015.pdf",
				FileName:     "SC2024015.pdf",
				StorageKey:   "certificates/SC2024015.pdf",
				UploadedByID: admin.ID,
			},
			detail: models.CertificateDetail{
				StudentName: "Rahim Uddin",
				Category:    constants.CategorySchool,
				Course:      "SSC",
				Year:        "2024",
				Grade:       "A",
				Percentage:  decimal.NewNullDecimal(decimal.NewFromFloat(85.25)),
			},
		},
		{
			cert: models.Certificate{
				RollNumber:   "CL2023042",
				PdfURL:       "https://example.com/certificates/CL2023042.pdf",
				FileName:     "CL2023042.pdf",
				StorageKey:   "certificates/CL2023042.pdf",
				UploadedByID: admin.ID,
			},
			detail: models.CertificateDetail{
				StudentName: "Fatema Begum",
				Category:    constants.CategoryCollege,
				Course:      "HSC",
				Year:        "2023",
				Grade:       "A-",
			},
		},
	}

	for _, item := range certificates {
		var count int64
		models.DB.Model(&models.Certificate{}).Where("roll_number = ?", item.cert.RollNumber).Count(&count)
		if count > 0 {
			stdLog.Printf("Certificate %s already exists, skipped", item.cert.RollNumber)
			continue
		}

		cert := item.cert
		if err := models.DB.Create(&cert).Error; err != nil {
			stdLog.Fatalf("Failed to seed certificate %s: %v", cert.RollNumber, err)
		}
		detail := item.detail
		detail.CertificateID = cert.ID
		if err := models.DB.Create(&detail).Error; err != nil {
			stdLog.Fatalf("Failed to seed certificate detail %s: %v", cert.RollNumber, err)
		}
		stdLog.Printf("Seeded certificate %s", cert.RollNumber)
	}

	stdLog.Println("Seed finished")
}
