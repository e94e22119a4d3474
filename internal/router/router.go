package router

import (
	"fmt"
	"strings"

	"github.com/vmq-next/internal/cache"
	"github.com/vmq-next/internal/config"
	adminhandlers "github.com/vmq-next/internal/http/handlers/admin"
	publichandlers "github.com/vmq-next/internal/http/handlers/public"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/provider"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// 不压缩的路径：监控端回调需要立即 flush，websocket 需要原始连接
var gzipExcludedPaths = []string{
	"/api/monitor/heart",
	"/api/monitor/push",
	"/appHeart",
	"/appPush",
}

var gzipExcludedPathRegexes = []string{
	`^/api/order/[^/]+/ws$`,
}

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "vmq"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "登录尝试次数过多",
	}
	monitorRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:monitor", redisPrefix),
		WindowSeconds: cfg.Security.MonitorRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.MonitorRateLimit.MaxRequests,
	}
	orderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order", redisPrefix),
		WindowSeconds: cfg.Security.OrderRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.OrderRateLimit.MaxRequests,
	}
	monitorLimit := RateLimitMiddleware(redisClient, monitorRule, KeyByIP)
	orderLimit := RateLimitMiddleware(redisClient, orderRule, KeyByIP)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths(gzipExcludedPaths),
		gzip.WithExcludedPathsRegexs(gzipExcludedPathRegexes),
	))

	// 旧版商户与监控端接口
	r.Any("/createOrder", orderLimit, publicHandler.CreateOrder)
	r.Any("/getOrder", publicHandler.GetOrder)
	r.Any("/checkOrder", publicHandler.CheckOrder)
	r.Any("/closeEndOrder", publicHandler.CloseEndOrder)
	r.GET("/enQrcode", publicHandler.GenerateQrCode)
	r.Any("/appHeart", monitorLimit, publicHandler.AppHeart)
	r.Any("/appPush", monitorLimit, publicHandler.AppPush)

	api := r.Group("/api")
	{
		order := api.Group("/order")
		{
			order.Any("/create", orderLimit, publicHandler.CreateOrder)
			order.GET("/:orderId", publicHandler.GetOrder)
			order.GET("/:orderId/check", publicHandler.CheckOrder)
			order.GET("/:orderId/return-url", publicHandler.ReturnURL)
			order.GET("/:orderId/ws", publicHandler.OrderStatusStream)
		}

		api.GET("/qrcode/generate", publicHandler.GenerateQrCode)

		monitor := api.Group("/monitor")
		monitor.Use(monitorLimit)
		{
			monitor.Any("/heart", publicHandler.MonitorHeart)
			monitor.Any("/push", publicHandler.MonitorPush)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIP), adminHandler.Login)
			auth.GET("/captcha", adminHandler.GetCaptcha)
		}

		admin := api.Group("/admin")
		admin.Use(AdminAuthMiddleware(c.AuthService))
		{
			admin.GET("/profile", adminHandler.Profile)

			// 订单管理
			admin.GET("/orders", adminHandler.ListOrders)
			admin.POST("/orders/sweep", adminHandler.SweepExpired)
			admin.DELETE("/orders/history", adminHandler.DeleteHistory)
			admin.POST("/orders/:orderId/close", adminHandler.CloseOrder)
			admin.DELETE("/orders/:orderId", adminHandler.DeleteOrder)

			// 系统设置
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.SaveSettings)
			admin.POST("/settings/reset-key", adminHandler.ResetSigningKey)

			// 监控状态
			admin.GET("/status", adminHandler.GetStatus)
			admin.GET("/trends", adminHandler.GetTrends)

			// 固定金额收款码
			admin.GET("/qrcodes", adminHandler.ListQrCodes)
			admin.POST("/qrcodes", adminHandler.CreateQrCode)
			admin.DELETE("/qrcodes/:id", adminHandler.DeleteQrCode)
			admin.PUT("/qrcodes/:id/state", adminHandler.UpdateQrCodeState)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
