package types

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError 可以映射到 HTTP 状态码的错误.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// AuthorizationError 显式拒绝，返回 403 与面向用户的提示.
	AuthorizationError struct {
		Message string
	}

	// NotFoundError 资源不存在或被静默拒绝，返回 404.
	NotFoundError struct {
		Message string
	}

	// CorruptionGuardError 输出通道已被写入或响应头已提交，中止下载，不可重试.
	CorruptionGuardError struct {
		Reason string
	}

	// InconsistentParametersError 修复请求的参数与存储中的当前状态不一致.
	InconsistentParametersError struct {
		DocumentID uint
		Code       int
		Param      uint
		Reason     string
	}

	// ConflictError 请求与当前状态冲突，例如 slug 已被占用.
	ConflictError struct {
		Message string
	}

	// UnfixableStructuralError 文档与附件的链接缺失、无效或悬空，且没有安全的自动修复（代码 1-3）.
	UnfixableStructuralError struct {
		DocumentID uint
		Code       int
	}

	// FixableStructuralError 链接或文件位置问题，可确定性修复（代码 4、5、7）.
	FixableStructuralError struct {
		DocumentID uint
		Code       int
		Param      uint
	}

	// FixableNamingWarning 文件名不是混淆名，可修复（代码 6）.
	FixableNamingWarning struct {
		DocumentID uint
		Param      uint
	}
)

func (e *AuthorizationError) Error() string { return e.Message }

// StatusCode 实现 HTTPError.
func (e *AuthorizationError) StatusCode() int { return http.StatusForbidden }

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return "not found"
	}

	return e.Message
}

// StatusCode 实现 HTTPError.
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

func (e *CorruptionGuardError) Error() string {
	return "refusing to serve file: " + e.Reason
}

// StatusCode 实现 HTTPError.
func (e *CorruptionGuardError) StatusCode() int { return http.StatusInternalServerError }

func (e *InconsistentParametersError) Error() string {
	return fmt.Sprintf("inconsistent parameters for document %d (code %d, param %d): %s",
		e.DocumentID, e.Code, e.Param, e.Reason)
}

// StatusCode 实现 HTTPError.
func (e *InconsistentParametersError) StatusCode() int { return http.StatusConflict }

func (e *ConflictError) Error() string { return e.Message }

// StatusCode 实现 HTTPError.
func (e *ConflictError) StatusCode() int { return http.StatusConflict }

func (e *UnfixableStructuralError) Error() string {
	return fmt.Sprintf("document %d has an unfixable structure problem (code %d): "+
		"move it to the trash or upload a replacement version", e.DocumentID, e.Code)
}

// StatusCode 实现 HTTPError.
func (e *UnfixableStructuralError) StatusCode() int { return http.StatusUnprocessableEntity }

func (e *FixableStructuralError) Error() string {
	return fmt.Sprintf("document %d has a fixable structure problem (code %d, param %d)",
		e.DocumentID, e.Code, e.Param)
}

// StatusCode 实现 HTTPError.
func (e *FixableStructuralError) StatusCode() int { return http.StatusUnprocessableEntity }

func (e *FixableNamingWarning) Error() string {
	return fmt.Sprintf("document %d: attachment %d is not stored under an obfuscated name",
		e.DocumentID, e.Param)
}

// StatusCode 实现 HTTPError.
func (e *FixableNamingWarning) StatusCode() int { return http.StatusUnprocessableEntity }

// StatusOf 返回错误对应的 HTTP 状态码，未知错误为 500.
func StatusOf(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}

	return http.StatusInternalServerError
}
