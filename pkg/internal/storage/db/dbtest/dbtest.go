// Package dbtest 为测试提供独立的内存 SQLite 数据库.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
)

var seq atomic.Int64

// New 创建已迁移表结构的内存数据库，测试结束时关闭.
func New(tb testing.TB) *db.Client {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())

	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	client, err := db.New(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}

	tb.Cleanup(func() { _ = client.Close() })

	return client
}
