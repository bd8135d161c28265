package configs

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBType 数据库方言.postgres/pg 与 mariadb 是别名.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgres"
	Pg         DBType = "pg"

	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"

	SQLite DBType = "sqlite"
)

// Canonical 别名归一，未知类型原样返回.
func (t DBType) Canonical() DBType {
	switch DBType(strings.ToLower(string(t))) {
	case PostgreSQL, Postgres, Pg:
		return PostgreSQL
	case MySQL, MariaDB:
		return MySQL
	case SQLite:
		return SQLite
	default:
		return t
	}
}

// DefaultPort 方言的默认端口，SQLite 为 0.
func (t DBType) DefaultPort() int {
	switch t.Canonical() {
	case PostgreSQL:
		return 5432
	case MySQL:
		return 3306
	default:
		return 0
	}
}

// DBConfig 文档、修订与附件元数据所在的关系库.
type DBConfig struct {
	Type     DBType `mapstructure:"type"     rule:"oneof=postgresql postgres pg mysql mariadb sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     rule:"min=0,max=65535"` // 0 取方言默认端口
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	// Database SQLite 时为文件名（不含 .db）或完整的 file: DSN
	Database string `mapstructure:"database" rule:"required"`
	SSLMode  string `mapstructure:"sslmode"  rule:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"    rule:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    rule:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" rule:"min=0"`
	// SlowQuery 超过即以 warn 记录 SQL，0 关闭
	SlowQuery time.Duration `mapstructure:"slow_query" rule:"min=0"`
}

// Label 日志与命令行输出里的方言名.
func (c *DBConfig) Label() string {
	switch c.Type.Canonical() {
	case PostgreSQL:
		return "PostgreSQL"
	case MySQL:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return "Unknown"
	}
}

func (c *DBConfig) port() int {
	if c.Port > 0 {
		return c.Port
	}

	return c.Type.DefaultPort()
}

// DSN 按方言生成连接串，未知方言返回空串.
func (c *DBConfig) DSN() string {
	switch c.Type.Canonical() {
	case PostgreSQL:
		return c.postgresDSN()
	case MySQL:
		return c.mysqlDSN()
	case SQLite:
		return c.sqliteDSN()
	default:
		return ""
	}
}

// postgresDSN URL 形式，用户名密码里的特殊字符由 url 包转义.
func (c *DBConfig) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.port())),
		Path:   "/" + c.Database,
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}

	if c.TimeZone != "" {
		q.Set("TimeZone", c.TimeZone)
	}

	u.RawQuery = q.Encode()

	return u.String()
}

func (c *DBConfig) mysqlDSN() string {
	loc := "Local"
	if c.TimeZone != "" {
		loc = url.QueryEscape(c.TimeZone)
	}

	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=%s",
		c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.port())), c.Database, loc)
}

// sqliteDSN Database 以 file: 开头时原样使用，便于指定内存库或绝对路径.
func (c *DBConfig) sqliteDSN() string {
	if strings.HasPrefix(c.Database, "file:") {
		return c.Database
	}

	return fmt.Sprintf("file:%s.db", c.Database)
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", PostgreSQL)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 0)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", "docvault")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "")
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.slow_query", "200ms")
}
