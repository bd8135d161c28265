// Package binder 维护文档/修订与其当前附件之间的绑定.
//
// 绑定以标记的形式嵌在内容字段中.规范形式为 `<!-- MARKER <digits> -->`，数字两侧允许空白；
// 旧形式是内容本身恰好为附件 id 的十进制字符串.
package binder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Form 标记形式.
type Form int

const (
	// FormNone 内容中没有标记.
	FormNone Form = iota
	// FormCanonical 规范注释形式.
	FormCanonical
	// FormLegacy 纯数字形式.
	FormLegacy
)

var canonicalRe = regexp.MustCompile(`<!--\s*MARKER\s+(\d+)\s*-->`)

// DetectForm 返回内容中标记的形式.
func DetectForm(content string) Form {
	if canonicalRe.MatchString(content) {
		return FormCanonical
	}

	if isDigits(strings.TrimSpace(content)) {
		return FormLegacy
	}

	return FormNone
}

// ExtractMarker 从内容中提取附件 id.
func ExtractMarker(content string) (uint, bool) {
	if m := canonicalRe.FindStringSubmatch(content); m != nil {
		return parseID(m[1])
	}

	if trimmed := strings.TrimSpace(content); isDigits(trimmed) {
		return parseID(trimmed)
	}

	return 0, false
}

// FormatMarker 规范形式的标记.
func FormatMarker(id uint) string {
	return fmt.Sprintf("<!-- MARKER %d -->", id)
}

// ReplaceMarker 把内容中的标记改为指向 id，保留原有形式与标记之外的文本.
// 内容没有标记时在开头写入规范标记.
func ReplaceMarker(content string, id uint) string {
	switch DetectForm(content) {
	case FormCanonical:
		loc := canonicalRe.FindStringSubmatchIndex(content)

		return content[:loc[2]] + strconv.FormatUint(uint64(id), 10) + content[loc[3]:]
	case FormLegacy:
		return strconv.FormatUint(uint64(id), 10)
	default:
		if strings.TrimSpace(content) == "" {
			return FormatMarker(id)
		}

		return FormatMarker(id) + content
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}

	return uint(n), true
}
