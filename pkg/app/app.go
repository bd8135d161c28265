// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/yeisme/docvault/pkg/api"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/jobs"
	"github.com/yeisme/docvault/pkg/internal/notify"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/middleware"
	"github.com/yeisme/docvault/pkg/scheduler"
	"github.com/yeisme/docvault/pkg/tracing"
)

type App struct {
	Engine   *gin.Engine
	Storage  *storage.Manager
	Services *service.Services

	config *configs.AppConfig
	sched  *scheduler.Scheduler
	cancel contextPkg.CancelFunc
}

// Bootstrap 加载配置并初始化存储与业务服务，不启动 HTTP 服务.命令行子命令复用它.
func Bootstrap(ctx contextPkg.Context, configPath string) (*configs.AppConfig, *storage.Manager, *service.Services, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, nil, nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	// 指标先于存储注册，数据库与消息队列的指标挂到同一个注册表
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx, config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	return config, manager, service.New(manager, config), nil
}

// NewApp 初始化完整的 HTTP 应用.
func NewApp(configPath string) (*App, error) {
	ctx, cancel := contextPkg.WithCancel(contextPkg.Background())

	config, manager, svc, err := Bootstrap(ctx, configPath)
	if err != nil {
		cancel()

		return nil, err
	}

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		cancel()
		_ = manager.Close()

		return nil, fmt.Errorf("init tracing: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{
		Engine:   gin.New(),
		Storage:  manager,
		Services: svc,
		config:   config,
		cancel:   cancel,
	}

	if err := a.startScheduler(); err != nil {
		a.close()

		return nil, err
	}

	a.Engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(config.Log),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.AuthMiddleware(config.Auth),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager, svc),
		middleware.SchedulerMiddleware(a.sched),
	)

	api.RegisterGroup(a.Engine, svc)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, a.Engine)
	}

	a.startNotifier(ctx)

	return a, nil
}

func (a *App) startScheduler() error {
	if !a.config.Scheduler.Enabled {
		return nil
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, a.Storage, a.Services, a.config.Scheduler); err != nil {
		_ = sched.Stop()

		return err
	}

	sched.Start()
	a.sched = sched

	return nil
}

// startNotifier 锁被接管时发送邮件.需要同时开启邮件与 lock.notify_on_override.
func (a *App) startNotifier(ctx contextPkg.Context) {
	mq := a.Storage.GetMQClient()
	if !a.config.Mail.Enabled || !a.config.Lock.NotifyOnOverride || mq == nil {
		return
	}

	consumer := notify.NewConsumer(mq.Subscriber(), notify.New(notify.NewSMTPMailer(a.config.Mail), a.config.Mail))

	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, contextPkg.Canceled) {
			l := log.Logger()
			l.Error().Err(err).Msg("notify consumer stopped")
		}
	}()
}

// Run 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	ctx, stop := signal.NotifyContext(contextPkg.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		l := log.Logger()
		l.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var result error

	select {
	case err := <-errCh:
		result = multierror.Append(result, err)
	case <-ctx.Done():
		shutdownCtx, cancel := contextPkg.WithTimeout(contextPkg.Background(), a.config.Server.GetShutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if err := a.close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

func (a *App) close() error {
	var result error

	a.cancel()

	if a.sched != nil {
		if err := a.sched.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop scheduler: %w", err))
		}
	}

	if err := tracing.ShutdownTracer(contextPkg.Background()); err != nil {
		result = multierror.Append(result, err)
	}

	if err := a.Storage.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}
