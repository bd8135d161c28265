// Package model 定义文档、修订与附件的 GORM 模型.
package model

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&Document{}, &Revision{}, &Attachment{}}
}
