// Package revision 维护文档修订的有序索引.
//
// 序号从 1 开始、按创建顺序连续分配，自动保存产生的临时修订不参与编号.
// Indices 与 RevisionList 的结果分别缓存，文档保存后二者同时失效.
package revision

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
)

// 缓存命名空间.
const (
	NSIndices = "revision:indices"
	NSList    = "revision:list"
)

// Entry 修订列表中的一项.Ordinal 为 0 的项表示文档当前状态.
type Entry struct {
	Ordinal    int       `json:"ordinal"`
	RevisionID uint      `json:"revision_id,omitempty"`
	DocumentID uint      `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	Summary    string    `json:"summary"`
	Modified   time.Time `json:"modified"`
}

// Current 报告该项是否为文档当前状态.
func (e Entry) Current() bool {
	return e.Ordinal == 0
}

// Index 修订索引.
type Index struct {
	repo  repository.Reader
	cache *cache.Cache
	ttl   time.Duration
}

// NewIndex 创建修订索引.
func NewIndex(repo repository.Reader, c *cache.Cache, ttl time.Duration) *Index {
	return &Index{repo: repo, cache: c, ttl: ttl}
}

// ordered 按创建顺序返回非自动保存修订的 id，下标 i 对应序号 i+1.
func (x *Index) ordered(ctx context.Context, documentID uint) ([]uint, error) {
	return cache.GetOrSet(ctx, x.cache, cache.Key(NSIndices, documentID), func() ([]uint, error) {
		revs, err := x.repo.ListRevisions(ctx, documentID)
		if err != nil {
			return nil, err
		}

		ids := make([]uint, 0, len(revs))
		for _, r := range revs {
			if !r.Autosave {
				ids = append(ids, r.ID)
			}
		}

		return ids, nil
	}, x.ttl)
}

// Indices 返回 序号→修订 id 映射.
func (x *Index) Indices(ctx context.Context, documentID uint) (map[int]uint, error) {
	ids, err := x.ordered(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("revision indices of %d: %w", documentID, err)
	}

	out := make(map[int]uint, len(ids))
	for i, id := range ids {
		out[i+1] = id
	}

	return out, nil
}

// RevisionNumber 反查修订的序号，自动保存修订没有序号.
func (x *Index) RevisionNumber(ctx context.Context, revisionID uint) (int, bool, error) {
	rev, err := x.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return 0, false, err
	}

	ids, err := x.ordered(ctx, rev.DocumentID)
	if err != nil {
		return 0, false, err
	}

	for i, id := range ids {
		if id == revisionID {
			return i + 1, true, nil
		}
	}

	return 0, false, nil
}

// RevisionID 按序号查找修订 id.
func (x *Index) RevisionID(ctx context.Context, ordinal int, documentID uint) (uint, bool, error) {
	if ordinal < 1 {
		return 0, false, nil
	}

	ids, err := x.ordered(ctx, documentID)
	if err != nil {
		return 0, false, err
	}

	if ordinal > len(ids) {
		return 0, false, nil
	}

	return ids[ordinal-1], true, nil
}

// RevisionList 按时间倒序返回修订，首项为文档当前状态（序号 0）.
func (x *Index) RevisionList(ctx context.Context, documentID uint) ([]Entry, error) {
	return cache.GetOrSet(ctx, x.cache, cache.Key(NSList, documentID), func() ([]Entry, error) {
		doc, err := x.repo.GetDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}

		revs, err := x.repo.ListRevisions(ctx, documentID)
		if err != nil {
			return nil, err
		}

		saved := make([]model.Revision, 0, len(revs))
		for _, r := range revs {
			if !r.Autosave {
				saved = append(saved, r)
			}
		}

		list := make([]Entry, 0, len(saved)+1)
		list = append(list, Entry{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    doc.Content,
			Author:     doc.Author,
			Summary:    latestSummary(saved),
			Modified:   doc.UpdatedAt,
		})

		for i := len(saved) - 1; i >= 0; i-- {
			r := saved[i]
			list = append(list, Entry{
				Ordinal:    i + 1,
				RevisionID: r.ID,
				DocumentID: r.DocumentID,
				Title:      r.Title,
				Content:    r.Content,
				Author:     r.Author,
				Summary:    html.UnescapeString(r.Summary),
				// 修订的修改时间即其创建时间，而不是父文档的修改时间
				Modified: r.CreatedAt,
			})
		}

		return list, nil
	}, x.ttl)
}

func latestSummary(saved []model.Revision) string {
	if len(saved) == 0 {
		return ""
	}

	return html.UnescapeString(saved[len(saved)-1].Summary)
}

// Invalidate 清除文档的索引与列表缓存.
func (x *Index) Invalidate(ctx context.Context, documentID uint) error {
	return x.cache.Delete(ctx, cache.Key(NSIndices, documentID), cache.Key(NSList, documentID))
}
