package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

func placement(p string) service.Placement {
	if p == "media" {
		return service.MediaPlacement()
	}

	return service.DocumentPlacement()
}

// ListDocuments 列出当前用户可读的文档.
//
//	@Summary	文档列表
//	@Tags		文档
//	@Produce	json
//	@Param		author	query		string	false	"作者"
//	@Param		status	query		string	false	"状态"
//	@Param		offset	query		int		false	"偏移"
//	@Param		limit	query		int		false	"数量"
//	@Success	200		{object}	types.DocumentListResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Router		/api/v1/documents [get]
func ListDocuments(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	var q types.ListDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)

		return
	}

	docs, err := svc.Documents.List(c.Request.Context(), currentUser(c), repository.DocumentFilter{
		IncludeTrashed: q.Status == string(model.StatusTrashed),
		Author:         q.Author,
		Status:         model.DocumentStatus(q.Status),
		Offset:         q.Offset,
		Limit:          q.Limit,
	})
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, types.DocumentListResponse{Documents: docs, Count: len(docs)})
}

// GetDocument 返回文档元数据.
//
//	@Summary	文档详情
//	@Tags		文档
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	model.Document
//	@Failure	403	{object}	types.ErrorResponse
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/v1/documents/{id} [get]
func GetDocument(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	doc, err := svc.Documents.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

// UploadDocument 上传文件并创建文档.
//
//	@Summary	新建文档
//	@Tags		文档
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file		formData	file	true	"文件"
//	@Param		title		formData	string	false	"标题"
//	@Param		slug		formData	string	false	"slug"
//	@Param		status		formData	string	false	"状态"
//	@Param		placement	formData	string	false	"存储位置 document|media"
//	@Success	201			{object}	model.Document
//	@Failure	400			{object}	types.ErrorResponse
//	@Failure	409			{object}	types.ErrorResponse
//	@Router		/api/v1/documents [post]
func UploadDocument(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	var form types.UploadDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)

		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)

		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)

		return
	}
	defer f.Close()

	doc, err := svc.Documents.Upload(c.Request.Context(), currentUser(c), service.UploadInput{
		Slug:     form.Slug,
		Title:    form.Title,
		Status:   model.DocumentStatus(form.Status),
		Workflow: form.Workflow,
		Summary:  form.Summary,
		File: service.FileInput{
			Name: fh.Filename,
			Mime: fh.Header.Get("Content-Type"),
			Body: f,
		},
	}, placement(form.Placement))
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ReplaceFile 上传新版本文件.
//
//	@Summary	上传新版本
//	@Tags		文档
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		int		true	"文档 ID"
//	@Param		file	formData	file	true	"文件"
//	@Param		summary	formData	string	false	"修订摘要"
//	@Success	200		{object}	model.Document
//	@Failure	403		{object}	types.ErrorResponse
//	@Router		/api/v1/documents/{id}/file [put]
func ReplaceFile(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form types.ReplaceFileForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)

		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)

		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)

		return
	}
	defer f.Close()

	doc, err := svc.Documents.Replace(c.Request.Context(), currentUser(c), id, service.FileInput{
		Name: fh.Filename,
		Mime: fh.Header.Get("Content-Type"),
		Body: f,
	}, form.Summary, placement(form.Placement))
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateDocument 编辑标题、状态与摘要.
//
//	@Summary	编辑文档
//	@Tags		文档
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int							true	"文档 ID"
//	@Param		body	body		types.UpdateDocumentRequest	true	"修改内容"
//	@Success	200		{object}	model.Document
//	@Router		/api/v1/documents/{id} [patch]
func UpdateDocument(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req types.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)

		return
	}

	in := service.UpdateInput{Title: req.Title, Summary: req.Summary, Autosave: req.Autosave}
	if req.Status != nil {
		st := model.DocumentStatus(*req.Status)
		in.Status = &st
	}

	doc, err := svc.Documents.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

// SetWorkflow 设置审阅阶段标签.
//
//	@Summary	设置工作流状态
//	@Tags		文档
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int						true	"文档 ID"
//	@Param		body	body		types.WorkflowRequest	true	"工作流状态"
//	@Success	200		{object}	model.Document
//	@Router		/api/v1/documents/{id}/workflow [put]
func SetWorkflow(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req types.WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)

		return
	}

	doc, err := svc.Documents.SetWorkflow(c.Request.Context(), currentUser(c), id, req.State)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

// TrashDocument 放入回收站.
//
//	@Summary	放入回收站
//	@Tags		回收站
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	model.Document
//	@Router		/api/v1/documents/{id}/trash [post]
func TrashDocument(c *gin.Context) {
	docAction(c, func(svc *service.Services, id uint) (*model.Document, error) {
		return svc.Documents.Trash(c.Request.Context(), currentUser(c), id)
	})
}

// RestoreDocument 从回收站恢复.
//
//	@Summary	从回收站恢复
//	@Tags		回收站
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	model.Document
//	@Router		/api/v1/documents/{id}/restore [post]
func RestoreDocument(c *gin.Context) {
	docAction(c, func(svc *service.Services, id uint) (*model.Document, error) {
		return svc.Documents.Restore(c.Request.Context(), currentUser(c), id)
	})
}

// PurgeDocument 彻底删除回收站中的文档.
//
//	@Summary	彻底删除
//	@Tags		回收站
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	types.SuccessResponse
//	@Failure	409	{object}	types.ErrorResponse
//	@Router		/api/v1/documents/{id} [delete]
func PurgeDocument(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := svc.Documents.Purge(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// ListRevisions 返回修订列表，第一项为当前状态.
//
//	@Summary	修订列表
//	@Tags		文档
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	types.RevisionListResponse
//	@Router		/api/v1/documents/{id}/revisions [get]
func ListRevisions(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := svc.Documents.Revisions(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, types.RevisionListResponse{DocumentID: id, Revisions: list})
}

func docAction(c *gin.Context, fn func(svc *service.Services, id uint) (*model.Document, error)) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	doc, err := fn(svc, id)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

