package provider

import (
	"context"
	"time"

	"github.com/certvault/internal/authz"
	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/config"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"
	"github.com/certvault/internal/service"
	"github.com/certvault/internal/storage"
)

// Container 依赖注入容器
type Container struct {
	Config *config.Config

	// Repositories
	AdminRepo       repository.AdminRepository
	CertificateRepo repository.CertificateRepository

	// Infrastructure
	Storage storage.ObjectStorage

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	CaptchaService     *service.CaptchaService
	UploadService      *service.UploadService
	CertificateService *service.CertificateService
	LookupService      *service.LookupService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化对象存储
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.NewMinioStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Errorw("provider_init_storage_failed", "error", err)
		panic(err)
	}

	// 初始化授权服务
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_authz_failed", "error", err)
		panic(err)
	}

	adminRepo := repository.NewAdminRepository(models.DB)
	certRepo := repository.NewCertificateRepository(models.DB)

	return &Container{
		Config: cfg,

		AdminRepo:       adminRepo,
		CertificateRepo: certRepo,

		Storage: store,

		AuthzService:       authzService,
		AuthService:        service.NewAuthService(cfg, adminRepo),
		CaptchaService:     service.NewCaptchaService(cfg.Captcha),
		UploadService:      service.NewUploadService(cfg, certRepo, store),
		CertificateService: service.NewCertificateService(cfg, certRepo, store),
		LookupService:      service.NewLookupService(certRepo),
	}
}
