package vfs

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var obfuscatedRe = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ObfuscatedName 生成 32 位十六进制文件名，保留扩展名.
func ObfuscatedName(ext string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
}

// Obfuscated 报告文件名（去掉扩展名后）是否为 32 位十六进制.
func Obfuscated(name string) bool {
	return obfuscatedRe.MatchString(Stem(name))
}

// Stem 返回去掉目录与扩展名的文件名.
func Stem(p string) string {
	name := path.Base(p)

	return strings.TrimSuffix(name, path.Ext(name))
}

// DatedPath 按上传时间分目录：2006/01/<name>.
func DatedPath(t time.Time, name string) string {
	return path.Join(t.UTC().Format("2006/01"), name)
}
