package provider

import (
	"time"

	"github.com/vmq-next/internal/cache"
	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/queue"
	"github.com/vmq-next/internal/repository"
	"github.com/vmq-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	OrderRepo       repository.OrderRepository
	ReservationRepo repository.ReservationRepository
	QrCodeRepo      repository.QrCodeRepository
	SettingRepo     repository.SettingRepository
	StatsRepo       repository.StatsRepository

	// Services
	OrderEvents        *service.OrderEventBus
	SettingService     *service.SettingService
	PriceAllocator     *service.PriceAllocator
	OrderService       *service.OrderService
	PaymentPushService *service.PaymentPushService
	NotifyService      *service.NotifyService
	MonitorService     *service.MonitorService
	QrCodeService      *service.QrCodeService
	AuthService        *service.AuthService
	CaptchaService     *service.CaptchaService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	return NewContainerWithDB(cfg, models.DB, queueClient)
}

// NewContainerWithDB 使用指定数据库构建容器，测试与命令行工具复用
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ReservationRepo = repository.NewReservationRepository(db)
	c.QrCodeRepo = repository.NewQrCodeRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.StatsRepo = repository.NewStatsRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config
	c.OrderEvents = service.NewOrderEventBus()
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.SettingService.SetPasswordPolicy(cfg.Security.PasswordPolicy)
	c.PriceAllocator = service.NewPriceAllocator(c.ReservationRepo, cfg.Order.PriceRetryBudget, cfg.Order.PriceStepCents)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ReservationRepo,
		c.QrCodeRepo,
		c.SettingService,
		c.PriceAllocator,
		c.QueueClient,
		c.OrderEvents,
		cfg.App.FrontendURL,
	)
	c.PaymentPushService = service.NewPaymentPushService(c.OrderRepo, c.PriceAllocator, c.SettingService, c.OrderEvents)
	c.NotifyService = service.NewNotifyService(
		c.OrderRepo,
		c.SettingService,
		nil,
		time.Duration(cfg.Order.NotifyTimeoutSeconds)*time.Second,
		c.OrderEvents,
	)
	c.MonitorService = service.NewMonitorService(
		c.SettingService,
		c.StatsRepo,
		time.Duration(cfg.Monitor.OfflineAfterSeconds)*time.Second,
	)
	c.QrCodeService = service.NewQrCodeService(c.QrCodeRepo)
	c.AuthService = service.NewAuthService(cfg, c.SettingService)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
