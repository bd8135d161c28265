// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/scheduler"
)

// RegisterCronJobs 按配置注册定时任务：
//   - 结构校验巡检，只记录日志，不自动修复
//   - 回收站清理，彻底删除超过保留期的文档
//
// cron 表达式为空时跳过对应任务.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager, svc *service.Services, conf configs.SchedulerConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if svc == nil {
		return fmt.Errorf("services are nil")
	}

	baseCtx := ctxPkg.WithServices(ctxPkg.WithStorageManager(context.Background(), mgr), svc)

	if conf.ValidateCron != "" {
		sweeper := authz.User{ID: conf.SweepUser, Role: authz.RoleAdmin}

		if err := sched.AddCron(JobValidateSweep, conf.ValidateCron, func(ctx context.Context) error {
			return runValidateSweep(ctx, svc, sweeper)
		}, baseCtx); err != nil {
			return fmt.Errorf("register %s: %w", JobValidateSweep, err)
		}
	}

	if conf.TrashPurgeCron != "" {
		retention := conf.TrashRetention

		if err := sched.AddCron(JobTrashPurge, conf.TrashPurgeCron, func(ctx context.Context) error {
			return runTrashPurge(ctx, svc, retention)
		}, baseCtx); err != nil {
			return fmt.Errorf("register %s: %w", JobTrashPurge, err)
		}
	}

	return nil
}

// runValidateSweep 校验所有文档并记录发现的问题.部分文档失败时仍记录其余结果，并返回错误.
func runValidateSweep(ctx context.Context, svc *service.Services, user authz.User) error {
	l := log.Logger().With().Str("job", JobValidateSweep).Logger()

	start := time.Now()

	findings, err := svc.Validator.Validate(ctx, user)

	fixable := 0

	for i := range findings {
		if findings[i].Fixable {
			fixable++
		}
	}

	l.Info().
		Int("findings", len(findings)).
		Int("fixable", fixable).
		Dur("elapsed", time.Since(start)).
		Msg("validate sweep done")

	return err
}

// runTrashPurge 彻底删除回收站中超过保留期的文档.
func runTrashPurge(ctx context.Context, svc *service.Services, retention time.Duration) error {
	l := log.Logger().With().Str("job", JobTrashPurge).Logger()

	n, err := svc.Documents.PurgeTrashed(ctx, retention)
	if n > 0 {
		l.Info().Int("purged", n).Dur("retention", retention).Msg("trash purged")
	}

	return err
}
