package types

import (
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/revision"
)

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
	// Code 机器可读的错误类别，例如 inconsistent_parameters
	Code string `json:"code,omitempty"`
}

// SuccessResponse 修复等无返回体操作的响应.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UploadDocumentForm 新建文档（multipart/form-data，文件字段为 file）.
type UploadDocumentForm struct {
	Slug     string `form:"slug"     binding:"omitempty,max=200"`
	Title    string `form:"title"    binding:"omitempty,max=512"`
	Status   string `form:"status"   binding:"omitempty,oneof=draft private pending published"`
	Workflow string `form:"workflow" binding:"omitempty,max=64"`
	Summary  string `form:"summary"`
	// Placement 存储位置：document（默认）或 media
	Placement string `form:"placement" binding:"omitempty,oneof=document media"`
}

// ReplaceFileForm 上传新版本文件.
type ReplaceFileForm struct {
	Summary   string `form:"summary"`
	Placement string `form:"placement" binding:"omitempty,oneof=document media"`
}

// UpdateDocumentRequest 编辑文档字段，省略的字段不修改.
type UpdateDocumentRequest struct {
	Title    *string `json:"title"    binding:"omitempty,max=512"`
	Status   *string `json:"status"   binding:"omitempty,oneof=draft private pending published"`
	Summary  string  `json:"summary"`
	Autosave bool    `json:"autosave"`
}

// WorkflowRequest 设置审阅阶段.
type WorkflowRequest struct {
	State string `json:"state" binding:"max=64"`
}

// ListDocumentsQuery 文档列表查询参数.
type ListDocumentsQuery struct {
	Author string `form:"author"`
	Status string `form:"status" binding:"omitempty,oneof=draft private pending published trashed"`
	Offset int    `form:"offset" binding:"min=0"`
	Limit  int    `form:"limit"  binding:"min=0,max=500"`
}

// DocumentListResponse 文档列表.
type DocumentListResponse struct {
	Documents []model.Document `json:"documents"`
	Count     int              `json:"count"`
}

// RevisionListResponse 修订列表，第一项为当前状态.
type RevisionListResponse struct {
	DocumentID uint             `json:"document_id"`
	Revisions  []revision.Entry `json:"revisions"`
}
