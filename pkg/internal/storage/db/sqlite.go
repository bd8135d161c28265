package db

import "strings"

// busyTimeout 写锁等待毫秒数.保存文档与编辑锁会并发写同一个库.
const busyTimeout = "5000"

func sqliteInMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// withSQLiteParams 在 DSN 后追加查询参数.
func withSQLiteParams(dsn string, params ...string) string {
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(params, "&")
}
