// Package s3 连接 MinIO，作为文档文件的远程存储后端.
package s3

import (
	"context"
	"fmt"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Client 包装 MinIO 客户端，绑定文档所在的桶.
type Client struct {
	*minio.Client
	bucket string
}

// New 连接并确认桶存在，按配置自动建桶.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	cli, err := minio.New(endpoint(cfg))
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	if err := ensureBucket(ctx, cli, cfg); err != nil {
		return nil, err
	}

	host, _ := cfg.EndpointHost()
	nlog.Logger().Info().Str("endpoint", host).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.BucketName}, nil
}

func endpoint(cfg *configs.S3Config) (string, *minio.Options) {
	host, secure := cfg.EndpointHost()

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	}

	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	return host, opts
}

func ensureBucket(ctx context.Context, cli *minio.Client, cfg *configs.S3Config) error {
	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if exists {
		return nil
	}

	if !cfg.CreateBucket {
		return fmt.Errorf("bucket %s does not exist", cfg.BucketName)
	}

	if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
	}

	nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")

	return nil
}

// Bucket 返回文档文件所在的桶.
func (c *Client) Bucket() string {
	return c.bucket
}

// HealthCheck 检查桶是否仍可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)
	return err
}

// Close minio 客户端不持有需要释放的连接.
func (c *Client) Close() error {
	return nil
}
