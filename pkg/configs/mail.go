package configs

import "github.com/spf13/viper"

// MailConfig SMTP 邮件通知配置.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     rule:"min=0,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	StartTLS bool   `mapstructure:"starttls"`
	// BaseURL 邮件中文档链接的前缀
	BaseURL string `mapstructure:"base_url"`
	// Domain 用户标识不是邮箱时拼接的域名，例如 alice -> alice@example.com
	Domain string `mapstructure:"domain"`
}

func (c *MailConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.from", "docvault@localhost")
	v.SetDefault("mail.from_name", "DocVault")
	v.SetDefault("mail.starttls", false)
	v.SetDefault("mail.base_url", "http://localhost:8080")
	v.SetDefault("mail.domain", "")
}
