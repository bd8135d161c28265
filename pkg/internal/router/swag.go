package router

import (
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/docvault/docs"
	"github.com/yeisme/docvault/pkg/configs"
)

// RegisterSwaggerRoute 调试模式下挂载 /swagger 文档页.
func RegisterSwaggerRoute(r *gin.Engine) {
	cfg := configs.GetConfig().Server
	if !cfg.Debug {
		return
	}

	docs.SwaggerInfo.Host = swaggerHost(cfg)
	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.DocExpansion("none"),
		ginSwagger.PersistAuthorization(true),
	))
}

// swaggerHost 文档页里 "Try it out" 请求的目标地址.监听 0.0.0.0 时浏览器无法直接访问，改用 localhost.
func swaggerHost(cfg configs.ServerConfig) string {
	if cfg.PublicHost != "" {
		return cfg.PublicHost
	}

	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}
