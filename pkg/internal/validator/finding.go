package validator

import (
	"fmt"

	"github.com/yeisme/docvault/pkg/internal/types"
)

// Code 问题分类代码.
type Code int

const (
	// CodeNoAttachment 没有标记，也没有任何附件.
	CodeNoAttachment Code = iota + 1
	// CodeDanglingMarker 标记无法解析，且没有可回退的附件.
	CodeDanglingMarker
	// CodeMissingFile 标记可解析，但文件不存在.
	CodeMissingFile
	// CodeMissingMarker 标记缺失，但存在有效附件.
	CodeMissingMarker
	// CodeInvalidMarker 标记无效，但存在可回退的附件.
	CodeInvalidMarker
	// CodeUnhashedName 文件名不是 32 位十六进制.
	CodeUnhashedName
	// CodeMediaRoot 文件位于默认媒体目录而不在文档目录.
	CodeMediaRoot
)

// Severity 严重程度.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Severity 返回代码对应的严重程度.
func (c Code) Severity() Severity {
	if c == CodeUnhashedName {
		return SeverityWarning
	}

	return SeverityError
}

// Fixable 报告代码是否可自动修复.
func (c Code) Fixable() bool {
	return c >= CodeMissingMarker && c <= CodeMediaRoot
}

// Valid 报告代码是否在 1-7 之间.
func (c Code) Valid() bool {
	return c >= CodeNoAttachment && c <= CodeMediaRoot
}

var messages = map[Code]string{
	CodeNoAttachment:   "no file has been uploaded for this document",
	CodeDanglingMarker: "the document points to a file that does not exist",
	CodeMissingFile:    "the attached file is missing from storage",
	CodeMissingMarker:  "the document is not linked to its latest file",
	CodeInvalidMarker:  "the document link is broken but a previous file is available",
	CodeUnhashedName:   "the file is stored under its original name",
	CodeMediaRoot:      "the file is stored in the media folder instead of the document folder",
}

// Finding 单个文档的校验结果，不落库.
type Finding struct {
	DocumentID uint     `json:"document_id"`
	Slug       string   `json:"slug"`
	Code       Code     `json:"code"`
	Severity   Severity `json:"severity"`
	Fixable    bool     `json:"fixable"`
	// Param 修复参数：代码 4、5 为回退附件 id，代码 3、6、7 为已解析的附件 id
	Param   uint   `json:"param"`
	Message string `json:"message"`
}

func newFinding(docID uint, slug string, code Code, param uint) *Finding {
	msg := messages[code]
	if !code.Fixable() {
		msg += "; move it to the trash or upload a replacement version"
	}

	return &Finding{
		DocumentID: docID,
		Slug:       slug,
		Code:       code,
		Severity:   code.Severity(),
		Fixable:    code.Fixable(),
		Param:      param,
		Message:    msg,
	}
}

// Err 转换为对应的类型化错误.
func (f *Finding) Err() error {
	switch {
	case !f.Fixable:
		return &types.UnfixableStructuralError{DocumentID: f.DocumentID, Code: int(f.Code)}
	case f.Code == CodeUnhashedName:
		return &types.FixableNamingWarning{DocumentID: f.DocumentID, Param: f.Param}
	default:
		return &types.FixableStructuralError{DocumentID: f.DocumentID, Code: int(f.Code), Param: f.Param}
	}
}

// FixPath 修复接口的相对路径.
func (f *Finding) FixPath() string {
	if !f.Fixable {
		return ""
	}

	return fmt.Sprintf("/correct/%d/type/%d/attach/%d", f.DocumentID, f.Code, f.Param)
}
