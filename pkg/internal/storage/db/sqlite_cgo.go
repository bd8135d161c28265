//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

// mattn/go-sqlite3 的参数写法；文件库用 WAL，下载读取不被保存阻塞.
func cgoSQLiteDSN(dsn string) string {
	params := []string{"_busy_timeout=" + busyTimeout}
	if !sqliteInMemory(dsn) {
		params = append(params, "_journal_mode=WAL")
	}

	return withSQLiteParams(dsn, params...)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, func(dsn string) gorm.Dialector {
		return sqlite.Open(cgoSQLiteDSN(dsn))
	})
}
