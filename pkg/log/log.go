// Package log 提供全局 zerolog 日志.标准错误按配置输出 console 或 json，
// 文件输出为 JSON 并由 lumberjack 轮转.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docvault/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按全局配置初始化 logger，只生效一次.
func Init() {
	initOnce.Do(func() {
		cfg := configs.GetConfig()

		logger = New(cfg.Log, cfg.Server.Debug, os.Stderr)
		log.Logger = logger
	})
}

// Logger 返回全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	Init()

	return &logger
}

// Ctx 返回带 trace_id / span_id 的 logger，上下文里没有采样中的 span 时即全局 logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}

	withTrace := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()

	return &withTrace
}

// New 按配置构造 logger.debug 时附带调用位置.
func New(conf configs.LogConfig, debug bool, stderr io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(conf.Level))
	if err != nil || conf.Level == "" {
		if conf.Level != "" {
			fmt.Fprintf(stderr, "invalid log level %q, using info\n", conf.Level)
		}

		lvl = zerolog.InfoLevel
	}

	var out io.Writer = stderr
	if conf.Format != "json" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.DateTime}
	}

	writers := []io.Writer{out}

	if conf.EnableFile && conf.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   conf.FilePath,
			MaxSize:    conf.MaxSize,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAge,
			Compress:   conf.Compress,
		})
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp()
	if debug {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}

// GinWriter 把 gin 自身的输出（路由表、调试告警）转成日志事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "[GIN-debug]"))

	lvl := w.level
	if rest, ok := strings.CutPrefix(msg, "[WARNING]"); ok {
		msg = strings.TrimSpace(rest)
		lvl = max(lvl, zerolog.WarnLevel)
	}

	if msg != "" {
		w.logger.WithLevel(lvl).Str("component", "gin").Msg(msg)
	}

	return len(p), nil
}
