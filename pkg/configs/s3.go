package configs

import (
	"net/url"

	"github.com/spf13/viper"
)

// S3Config 文档文件的对象存储（MinIO 或兼容 S3 的服务）.
type S3Config struct {
	// Endpoint host:port，也可以写成 http(s)://host:port
	Endpoint        string `mapstructure:"endpoint"          rule:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required,min=3,max=63"`
	Region          string `mapstructure:"region"`
	// PathStyle 使用 host/bucket 形式寻址，自建 MinIO 通常需要
	PathStyle bool `mapstructure:"path_style"`
	// CreateBucket 桶不存在时创建，关闭后缺桶直接启动失败
	CreateBucket bool `mapstructure:"create_bucket"`
}

// EndpointHost 去掉 scheme 后的地址，https scheme 视同开启 SSL.
func (c *S3Config) EndpointHost() (string, bool) {
	if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" {
		return u.Host, c.UseSSL || u.Scheme == "https"
	}

	return c.Endpoint, c.UseSSL
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", "localhost:9000")
	v.SetDefault("s3.access_key_id", "minioadmin")
	v.SetDefault("s3.secret_access_key", "minioadmin")
	v.SetDefault("s3.session_token", "")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket_name", "docvault")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.path_style", true)
	v.SetDefault("s3.create_bucket", true)
}
