// Package db 处理数据库存储操作：dialector 注册、连接池、GORM 日志与指标、表结构迁移.
package db

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/model"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
)

// DialectorFactory 由 DSN 创建 dialector.
type DialectorFactory func(dsn string) gorm.Dialector

// dialectorFactories 以归一后的方言为键，别名不单独注册.
var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 注册方言，由各驱动文件的 init 调用，构建标签可以去掉不需要的驱动.
func RegisterDialectorFactory(dbType configs.DBType, factory DialectorFactory) {
	dialectorFactories[dbType.Canonical()] = factory
}

// GetRegisteredDBTypes 返回已编译进来的方言，按名称排序.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for dbType := range dialectorFactories {
		types = append(types, dbType)
	}

	slices.Sort(types)

	return types
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// New 连接数据库、配置连接池并迁移表结构.
func New(ctx context.Context, cfg *configs.DBConfig) (*Client, error) {
	kind := cfg.Type.Canonical()

	factory, exists := dialectorFactories[kind]
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(factory(cfg.DSN()), &gorm.Config{
		Logger:      newGORMLogger(cfg.SlowQuery, configs.GetConfig().Server.Debug),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Label(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Label(), err)
	}

	client := &Client{DB: db}

	if mc := configs.GetConfig().Metrics; mc.Enabled {
		if err := client.registerMetrics(cfg.Database, mc.DBRefresh); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	ev := nlog.Logger().Info().Str("type", cfg.Label()).Str("database", cfg.Database)
	if kind != configs.SQLite {
		ev = ev.Str("host", cfg.Host)
	}

	ev.Msg("database connected")

	return client, nil
}

// newGORMLogger SQL 日志写入全局 zerolog.调试模式记录全部语句，否则只记慢查询与错误.
func newGORMLogger(slow time.Duration, debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	return logger.New(nlog.Logger(), logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// GetDB 返回 GORM DB 实例.
func (c *Client) GetDB() *gorm.DB {
	return c.DB
}

// Migrate 自动迁移文档、修订与附件表.
func (c *Client) Migrate(ctx context.Context) error {
	if err := c.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// registerMetrics 连接池指标注册到 metrics 包的注册表，跟随 /metrics 一起暴露.
func (c *Client) registerMetrics(dbName string, refresh time.Duration) error {
	p := gormPrometheus.New(gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: uint32(max(refresh, time.Second) / time.Second),
	})

	if err := c.Use(p); err != nil {
		return fmt.Errorf("register GORM prometheus plugin: %w", err)
	}

	if err := metrics.Register(p.DBStats.Collectors()...); err != nil {
		return fmt.Errorf("register GORM metrics: %w", err)
	}

	return nil
}
