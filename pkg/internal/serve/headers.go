package serve

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
)

type headerSet struct {
	disposition  string
	contentType  string
	lastModified string
	etag         string
}

func (s *Server) headers(doc *model.Document, att *model.Attachment, req Request, info vfs.FileInfo, sniffed string) headerSet {
	ct := sniffed
	if s.mime != nil {
		if v := s.mime(att, ct); v != "" {
			ct = v
		}
	}

	if req.MimeType != "" {
		ct = req.MimeType
	}

	lm := info.ModTime.UTC().Format(http.TimeFormat)

	return headerSet{
		disposition:  mime.FormatMediaType(s.opts.Disposition, map[string]string{"filename": filename(doc, att, req, ct)}),
		contentType:  ct,
		lastModified: lm,
		etag:         ETag(lm),
	}
}

func (h headerSet) apply(header http.Header) {
	header.Set("Content-Disposition", h.disposition)
	header.Set("Content-Type", h.contentType)
	header.Set("Last-Modified", h.lastModified)
	header.Set("ETag", h.etag)
	header.Set("Cache-Control", "no-cache")
	header.Set("Vary", "Accept-Encoding")
}

// ETag 由 Last-Modified 字符串计算的强校验值.
func ETag(lastModified string) string {
	return `"` + strconv.FormatUint(xxhash.Sum64String(lastModified), 16) + `"`
}

// filename 下载文件名：slug，按修订下载时加 -revision-N，再加扩展名.
func filename(doc *model.Document, att *model.Attachment, req Request, contentType string) string {
	base := doc.Slug
	if base == "" {
		base = strconv.FormatUint(uint64(doc.ID), 10)
	}

	if req.HasRevision && req.Ordinal > 0 {
		base += "-revision-" + strconv.Itoa(req.Ordinal)
	}

	ext := path.Ext(att.Path)
	if ext == "" {
		mt, _, _ := mime.ParseMediaType(contentType)
		if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	return base + ext
}

// notModified 按 If-None-Match / If-Modified-Since 判断客户端缓存是否仍然有效.
// If-None-Match 存在时忽略 If-Modified-Since.
func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		want := strings.Trim(etag, `"`)

		for _, tag := range strings.Split(inm, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "*" || normalizeETag(tag) == want {
				return true
			}
		}

		return false
	}

	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}

	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}

	return !modTime.Truncate(time.Second).After(t)
}

// normalizeETag 去掉弱校验前缀、引号以及压缩模块追加的编码后缀.
func normalizeETag(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.TrimSuffix(tag, ";gzip")
	tag = strings.Trim(tag, `"`)

	for _, suffix := range []string{"-gzip", "-deflate"} {
		tag = strings.TrimSuffix(tag, suffix)
	}

	return tag
}
