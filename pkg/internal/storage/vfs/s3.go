package vfs

import (
	"context"
	"fmt"
	"io"
	"strings"

	minio "github.com/minio/minio-go/v7"
)

// S3FS 基于 MinIO 的对象存储后端，路径即对象键.
type S3FS struct {
	client *minio.Client
	bucket string
}

// NewS3FS 创建对象存储后端.
func NewS3FS(client *minio.Client, bucket string) *S3FS {
	return &S3FS{client: client, bucket: bucket}
}

func objectKey(name string) string {
	return strings.TrimPrefix(name, "/")
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code

	return code == "NoSuchKey" || code == "NotFound"
}

func (s *S3FS) Stat(ctx context.Context, name string) (FileInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectKey(name), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return FileInfo{}, fmt.Errorf("stat %s: %w", name, ErrNotExist)
		}

		return FileInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}

	return FileInfo{
		Name:    name[strings.LastIndex(name, "/")+1:],
		Size:    info.Size,
		ModTime: info.LastModified,
		Regular: !strings.HasSuffix(info.Key, "/"),
	}, nil
}

func (s *S3FS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	// GetObject 延迟报错，先 Stat 一次以便立即发现不存在的对象
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()

		if isNoSuchKey(err) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotExist)
		}

		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	return obj, nil
}

func (s *S3FS) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, objectKey(name), r, -1, minio.PutObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}

	return info.Size, nil
}

func (s *S3FS) Copy(ctx context.Context, src, dst string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: objectKey(dst)},
		minio.CopySrcOptions{Bucket: s.bucket, Object: objectKey(src)},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("copy %s: %w", src, ErrNotExist)
		}

		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}

	return nil
}

func (s *S3FS) Remove(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}

	return nil
}

// MkdirAll 对象存储没有目录.
func (s *S3FS) MkdirAll(context.Context, string) error {
	return nil
}
