package revision

import (
	"strings"
	"time"

	"github.com/yeisme/docvault/pkg/internal/model"
)

// Decision 保存文档时对修订的处理方式.
type Decision int

const (
	// Skip 没有可记录的变化.
	Skip Decision = iota
	// Create 创建新修订.
	Create
	// Merge 把变更并入上一条修订.
	Merge
)

func (d Decision) String() string {
	switch d {
	case Create:
		return "create"
	case Merge:
		return "merge"
	default:
		return "skip"
	}
}

// MergePolicy 修订合并策略.Window 为 0 表示从不合并.
type MergePolicy struct {
	Window time.Duration
}

// Decide 比较上一条真实修订与即将保存的状态.
//
// 标题、内容（含标记）或作者变化时总是创建新修订；只有摘要尾部变化、
// 且两次保存间隔不超过 Window 时才合并.两段摘要都非空且互不为前缀视为分歧，不合并.
func (p MergePolicy) Decide(prev *model.Revision, next *model.Revision) Decision {
	if prev == nil {
		return Create
	}

	if prev.Title != next.Title || prev.Content != next.Content || prev.Author != next.Author {
		return Create
	}

	if prev.Summary == next.Summary {
		return Skip
	}

	if p.mergeable(prev, next) {
		return Merge
	}

	return Create
}

func (p MergePolicy) mergeable(prev, next *model.Revision) bool {
	if p.Window <= 0 || prev.Autosave {
		return false
	}

	gap := next.CreatedAt.Sub(prev.CreatedAt)
	if gap < 0 || gap > p.Window {
		return false
	}

	if prev.Summary == "" || next.Summary == "" {
		return true
	}

	return strings.HasPrefix(next.Summary, prev.Summary) || strings.HasPrefix(prev.Summary, next.Summary)
}
