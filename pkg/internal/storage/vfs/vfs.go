// Package vfs 定义文档文件的存储抽象：存在性检查、读取、写入、复制、删除与建目录.
//
// 后端包括基于 afero 的本地磁盘与内存文件系统，以及基于 MinIO 的对象存储.
// 对象存储不保证重命名语义，因此移动操作统一实现为可重试的两阶段 Move（复制、校验、删除）.
package vfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

// ErrNotExist 文件不存在.
var ErrNotExist = fs.ErrNotExist

// FileInfo 文件元数据.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	// Regular 是否为普通文件（目录、设备等为 false）
	Regular bool
}

// FS 文档文件存储.路径使用正斜杠分隔.
type FS interface {
	// Stat 返回文件信息，不存在时返回包装了 ErrNotExist 的错误.
	Stat(ctx context.Context, name string) (FileInfo, error)
	// Open 打开文件读取.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Write 写入（覆盖）文件，必要时创建父目录.
	Write(ctx context.Context, name string, r io.Reader) (int64, error)
	// Copy 复制文件，目标已存在时覆盖.
	Copy(ctx context.Context, src, dst string) error
	// Remove 删除文件，文件不存在不视为错误.
	Remove(ctx context.Context, name string) error
	// MkdirAll 创建目录（对象存储为空操作）.
	MkdirAll(ctx context.Context, dir string) error
}

// Exists 报告文件是否存在.
func Exists(ctx context.Context, fsys FS, name string) (bool, error) {
	_, err := fsys.Stat(ctx, name)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, ErrNotExist) {
		return false, nil
	}

	return false, err
}

// RootKind 存储根目录类型.
type RootKind string

const (
	// RootDocument 配置的文档存储根目录.
	RootDocument RootKind = "document"
	// RootMedia 默认媒体根目录，未启用文档目录时上传的文件落在这里.
	RootMedia RootKind = "media"
)

// Roots 存储根目录，显式传递给上传与路径解析调用.
type Roots struct {
	Document string
	Media    string
}

// Dir 返回根目录路径.
func (r Roots) Dir(kind RootKind) string {
	if kind == RootMedia {
		return r.Media
	}

	return r.Document
}

// Path 拼接根目录与相对路径.
func (r Roots) Path(kind RootKind, rel string) string {
	return Join(r.Dir(kind), rel)
}

// Join 拼接并清理路径，保留相对性.
func Join(elem ...string) string {
	return path.Join(elem...)
}

// Clean 把相对路径规范化，拒绝越出根目录的路径.
func Clean(rel string) (string, bool) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	cleaned := path.Clean("/" + rel)

	if cleaned == "/" {
		return "", false
	}

	return strings.TrimPrefix(cleaned, "/"), true
}
