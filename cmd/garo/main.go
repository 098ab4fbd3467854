package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/garo/internal/config"
	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/handler"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/bitfantasy/garo/internal/ims/sse"
	"github.com/bitfantasy/garo/internal/middleware"
	"github.com/bitfantasy/garo/internal/shared/finance"
	"github.com/bitfantasy/garo/internal/shared/mailer"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting garo ims service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate IMS实体
	if err := db.AutoMigrate(
		&entity.Supplier{},
		&entity.Part{},
		&entity.PurchaseOrder{},
		&entity.POItem{},
		&entity.PartUsageLog{},
		&entity.Notification{},
		&entity.AuditLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate IMS tables warning", zap.Error(err))
	}

	// 条件索引和约束AutoMigrate做不了，用原始SQL兜底
	migrationSQL := []string{
		// 每个零件最多一条未读低库存通知，靠条件唯一索引+ON CONFLICT去重
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_ims_notifications_unread_low_stock
			ON ims_notifications(part_id)
			WHERE is_read = false AND type = 'LOW_STOCK'`,

		// 库存不变量：预留不超过在库，数量不为负
		"ALTER TABLE ims_parts DROP CONSTRAINT IF EXISTS ck_ims_parts_stock",
		`ALTER TABLE ims_parts ADD CONSTRAINT ck_ims_parts_stock
			CHECK (stock_on_hand >= 0 AND stock_reserved >= 0 AND stock_reserved <= stock_on_hand)`,

		// 采购单状态枚举
		"ALTER TABLE ims_purchase_orders DROP CONSTRAINT IF EXISTS ck_ims_po_status",
		`ALTER TABLE ims_purchase_orders ADD CONSTRAINT ck_ims_po_status
			CHECK (status IN ('draft', 'submitted', 'approved', 'delivered'))`,

		"CREATE INDEX IF NOT EXISTS idx_ims_po_status ON ims_purchase_orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_ims_usage_part ON ims_part_usage_logs(part_id, used_at DESC)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)

	events := sse.Publisher{}
	smtp := newSMTPMailer(cfg.SMTP)

	stockSvc := service.NewStockService(repos.Part, repos.UsageLog, repos.AuditLog)
	partSvc := service.NewPartService(repos.Part, repos.UsageLog, repos.AuditLog)
	supplierSvc := service.NewSupplierService(repos.Supplier, repos.AuditLog)
	poSvc := service.NewPOService(repos.PO, repos.Part, repos.AuditLog, stockSvc)
	alertSvc := service.NewAlertService(repos.Part, repos.Notification, smtp, events,
		time.Duration(cfg.Alert.MinIntervalHours)*time.Hour, cfg.Alert.Email)

	alertSvc.SetRedis(rdb)
	stockSvc.SetLowStockChecker(alertSvc)
	partSvc.SetLowStockChecker(alertSvc)
	poSvc.SetEventPublisher(events)

	// 财务资本账（门户财务服务配置了才接）
	if cfg.Finance.BaseURL != "" {
		poSvc.SetCapitalLedger(finance.NewClient(cfg.Finance.BaseURL, cfg.Finance.ServiceToken))
		zapLogger.Info("Finance capital ledger client initialized", zap.String("base_url", cfg.Finance.BaseURL))
	}

	handlers := handler.NewHandlers(partSvc, stockSvc, supplierSvc, poSvc, alertSvc,
		repos.Notification, repos.AuditLog)

	// 周期低库存巡检
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go runSweepLoop(sweepCtx, alertSvc, cfg.Alert.SweepInterval, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// runSweepLoop 定时全量巡检低库存，库存下降操作之外的兜底
func runSweepLoop(ctx context.Context, alertSvc *service.AlertService, interval time.Duration, zapLogger *zap.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := alertSvc.ScanAllPartsForLowStock(ctx); err != nil {
				zapLogger.Warn("Low stock sweep failed", zap.Error(err))
			}
		}
	}
}

// smtpMailer 把SMTP客户端适配成服务层的邮件协作方
type smtpMailer struct {
	client *mailer.Client
}

func newSMTPMailer(cfg config.SMTPConfig) service.Mailer {
	return smtpMailer{client: mailer.NewClient(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.From)}
}

func (m smtpMailer) Send(ctx context.Context, to, subject, html string) service.MailOutcome {
	err := m.client.Send(ctx, to, subject, html)
	if errors.Is(err, mailer.ErrNotConfigured) {
		return service.MailSkipped
	}
	if err != nil {
		log.Printf("[IMS] SMTP发送失败 to=%s: %v", to, err)
		return service.MailFailed
	}
	return service.MailSent
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/ims/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		ims := v1.Group("/ims")
		ims.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 零件与库存台账
			parts := ims.Group("/parts")
			{
				parts.GET("", h.Part.ListParts)
				parts.POST("", h.Part.CreatePart)
				parts.GET("/:id", h.Part.GetPart)
				parts.PUT("/:id", h.Part.UpdatePart)
				parts.DELETE("/:id", h.Part.DeactivatePart)
				parts.POST("/:id/restore", h.Part.RestorePart)
				parts.DELETE("/:id/hard", h.Part.HardDeletePart)
				parts.POST("/:id/reserve", h.Part.ReserveStock)
				parts.POST("/:id/consume", h.Part.ConsumeStock)
				parts.POST("/:id/replenish", h.Part.ReplenishStock)
			}

			// 领用记录
			ims.GET("/usage", h.Part.ListUsage)

			// 供应商管理
			suppliers := ims.Group("/suppliers")
			{
				suppliers.GET("", h.Supplier.ListSuppliers)
				suppliers.POST("", h.Supplier.CreateSupplier)
				suppliers.GET("/:id", h.Supplier.GetSupplier)
				suppliers.PUT("/:id", h.Supplier.UpdateSupplier)
			}

			// 采购订单
			pos := ims.Group("/purchase-orders")
			{
				pos.GET("", h.PO.ListPOs)
				pos.POST("", h.PO.CreatePO)
				pos.GET("/:id", h.PO.GetPO)
				pos.PUT("/:id", h.PO.UpdatePO)
				pos.DELETE("/:id", h.PO.DeletePO)
				pos.POST("/:id/submit", h.PO.SubmitPO)
				pos.POST("/:id/approve", h.PO.ApprovePO)
				pos.POST("/:id/reject", h.PO.RejectPO)
				pos.POST("/:id/deliver", h.PO.DeliverPO)
			}

			// 站内通知
			notifications := ims.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.POST("/:id/read", h.Notification.MarkNotificationRead)
			}

			// 审计轨迹
			ims.GET("/audit-logs", h.Audit.ListAuditLogs)

			// 低库存告警
			alerts := ims.Group("/alerts")
			{
				alerts.POST("/sweep", h.Alert.TriggerSweep)
				alerts.POST("/check/:id", h.Alert.CheckPart)
			}
		}
	}
}
