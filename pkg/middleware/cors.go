package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
)

// CORSMiddleware 跨域配置.下载响应的文件名与 ETag 需要暴露给浏览器脚本，
// 身份头由 oauth2-proxy 注入，同样允许跨域携带.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "If-None-Match", "Range",
			"X-Auth-Request-User", "X-Auth-Request-Email", "X-Role",
		},
		ExposeHeaders: []string{"Content-Disposition", "Content-Encoding", "ETag"},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.CORSOrigins) == 0 || cfg.Debug {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.CORSOrigins
		conf.AllowCredentials = true
	}

	return cors.New(conf)
}
