package serve

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const (
	encodingGzip    = "gzip"
	encodingDeflate = "deflate"
)

// negotiate 解析 Accept-Encoding，gzip 优先于 deflate，均不可接受时返回空串.
func negotiate(header string) string {
	accepted := map[string]bool{}

	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))

		if name == "" || qZero(params) {
			continue
		}

		accepted[name] = true
	}

	switch {
	case accepted[encodingGzip] || accepted["*"]:
		return encodingGzip
	case accepted[encodingDeflate]:
		return encodingDeflate
	default:
		return ""
	}
}

func qZero(params string) bool {
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "q" {
			continue
		}

		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return err == nil && q == 0
	}

	return false
}

// compress 在内存中完整压缩.
func compress(r io.Reader, encoding string) ([]byte, error) {
	var (
		buf bytes.Buffer
		zw  io.WriteCloser
		err error
	)

	switch encoding {
	case encodingGzip:
		zw, err = gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	case encodingDeflate:
		// HTTP 的 deflate 编码是 zlib 封装格式
		zw, err = zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(zw, r); err != nil {
		_ = zw.Close()

		return nil, fmt.Errorf("%s compress: %w", encoding, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", encoding, err)
	}

	return buf.Bytes(), nil
}

// chunked HTTP/2 及以上或显式配置时按分块传输处理.
func (s *Server) chunked(r *http.Request) bool {
	return s.opts.Chunked || r.ProtoMajor >= 2
}

func (s *Server) writeCompressed(w http.ResponseWriter, r *http.Request, body io.Reader, encoding string) (int64, error) {
	payload, err := compress(body, encoding)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Encoding", encoding)

	if s.chunked(r) {
		w.Header().Del("Content-Length")
	} else {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	}

	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return 0, nil
	}

	n, err := w.Write(payload)

	return int64(n), err
}
