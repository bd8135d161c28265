package handle

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/serve"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/queue"
)

const errorPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%d %s</title></head>
<body><h1>%s</h1><p>%s</p></body></html>
`

// DownloadDocument 下载文档的最新附件，?rev=N 指定修订序号.
//
//	@Summary	下载文件
//	@Tags		下载
//	@Produce	octet-stream
//	@Param		slug	path	string	true	"文档 slug"
//	@Param		rev		query	int		false	"修订序号"
//	@Success	200
//	@Failure	403
//	@Failure	404
//	@Router		/documents/{slug} [get]
func DownloadDocument(c *gin.Context) {
	req := serve.Request{Slug: c.Param("slug")}

	if rev := c.Query("rev"); rev != "" {
		n, err := strconv.Atoi(rev)
		if err != nil || n < 0 {
			writeErrorPage(c, http.StatusNotFound, "no such revision")

			return
		}

		req.HasRevision = true
		req.Ordinal = n
	}

	download(c, req)
}

// DownloadRevision 下载指定修订的附件.
//
//	@Summary	下载修订文件
//	@Tags		下载
//	@Produce	octet-stream
//	@Param		slug	path	string	true	"文档 slug"
//	@Param		rev		path	int		true	"修订序号"
//	@Success	200
//	@Router		/documents/{slug}/revisions/{rev} [get]
func DownloadRevision(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("rev"))
	if err != nil || n < 0 {
		writeErrorPage(c, http.StatusNotFound, "no such revision")

		return
	}

	download(c, serve.Request{Slug: c.Param("slug"), HasRevision: true, Ordinal: n})
}

func download(c *gin.Context, req serve.Request) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	req.User = currentUser(c)

	res, err := svc.Files.Serve(c.Request.Context(), c.Writer, c.Request, req)
	if err != nil {
		served(c, svc, req, res, types.StatusOf(err))
		downloadFailed(c, err)

		return
	}

	served(c, svc, req, res, res.Status)
}

func served(c *gin.Context, svc *service.Services, req serve.Request, res serve.Result, status int) {
	metrics.FilesServed.WithLabelValues(strconv.Itoa(status)).Inc()
	metrics.ServedBytes.Add(float64(res.Bytes))

	if res.Document == nil || status != http.StatusOK {
		return
	}

	svc.Events.DocumentServed(c.Request.Context(), queue.DocumentServedPayload{
		Document: queue.DocumentRef{ID: res.Document.ID, Slug: res.Document.Slug, Title: res.Document.Title},
		Ordinal:  req.Ordinal,
		Status:   status,
		Bytes:    res.Bytes,
		Encoding: res.Encoding,
		User:     req.User.ID,
	})
}

func downloadFailed(c *gin.Context, err error) {
	l := log.Logger()

	var guardErr *types.CorruptionGuardError
	if errors.As(err, &guardErr) {
		// 响应已开始，无法再写出错误
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("download aborted")
		c.Abort()

		return
	}

	status := types.StatusOf(err)
	if c.Writer.Written() {
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("download interrupted")
		c.Abort()

		return
	}

	switch status {
	case http.StatusForbidden, http.StatusNotFound:
		l.Debug().Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg("download rejected")
		writeErrorPage(c, status, err.Error())
	default:
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("download failed")
		writeErrorPage(c, http.StatusInternalServerError, "the file could not be read")
	}
}

func writeErrorPage(c *gin.Context, status int, msg string) {
	text := http.StatusText(status)
	body := fmt.Sprintf(errorPage, status, text, text, html.EscapeString(msg))
	c.Data(status, "text/html; charset=utf-8", []byte(body))
	c.Abort()
}
