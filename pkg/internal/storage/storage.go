// Package storage 聚合数据库、对象存储、KV、消息队列与文档文件系统等基础设施.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	repo := repository.NewUncached(mgr.GetDBClient().GetDB())
package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/yeisme/docvault/pkg/configs"
	dbc "github.com/yeisme/docvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/docvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/docvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/docvault/pkg/internal/storage/s3"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB *dbc.Client
	// S3 仅在 document.backend=s3 时初始化
	S3 *s3c.Client
	KV *kvc.Client
	MQ *mqc.Client
	FS vfs.FS
}

// Init 按配置初始化全部存储.任一组件失败时关闭已初始化的组件并返回错误.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	var err error

	if m.DB, err = dbc.New(ctx, &cfg.DB); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	if m.KV, err = kvc.NewKVClient(ctx, &cfg.KV); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init kv: %w", err)
	}

	if m.MQ, err = mqc.New(ctx, &cfg.MQ); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init mq: %w", err)
	}

	if m.FS, err = m.newFS(ctx, cfg); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init document fs: %w", err)
	}

	nlog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("kv", cfg.KV.Type).
		Str("mq", string(m.MQ.Type())).
		Str("fs", string(cfg.Document.Backend)).
		Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) newFS(ctx context.Context, cfg *configs.AppConfig) (vfs.FS, error) {
	switch cfg.Document.Backend {
	case configs.FSBackendMemory:
		return vfs.NewMemFS(), nil
	case configs.FSBackendS3:
		s3i, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}

		m.S3 = s3i

		return vfs.NewS3FS(s3i.Client, s3i.Bucket()), nil
	default:
		return vfs.NewOsFS(), nil
	}
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetFS 获取文档文件系统.
func (m *Manager) GetFS() vfs.FS {
	return m.FS
}

// Close 关闭全部已初始化的组件.
func (m *Manager) Close() error {
	var errs *multierror.Error

	if m.MQ != nil {
		if err := m.MQ.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close mq: %w", err))
		}
	}

	if m.KV != nil {
		if err := m.KV.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close kv: %w", err))
		}
	}

	if m.S3 != nil {
		_ = m.S3.Close()
	}

	if m.DB != nil {
		if err := m.DB.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close db: %w", err))
		}
	}

	return errs.ErrorOrNil()
}
