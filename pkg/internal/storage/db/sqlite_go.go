//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

// modernc 驱动通过 _pragma 设置连接参数.
func pureSQLiteDSN(dsn string) string {
	params := []string{"_pragma=busy_timeout(" + busyTimeout + ")"}
	if !sqliteInMemory(dsn) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	return withSQLiteParams(dsn, params...)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, func(dsn string) gorm.Dialector {
		return sqlite.Open(pureSQLiteDSN(dsn))
	})
}
