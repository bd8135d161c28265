package model

import "time"

// Revision 文档某一时刻的不可变快照.序号不落库，由修订索引按创建顺序推导.
type Revision struct {
	ID         uint   `gorm:"primaryKey"                     json:"id"`
	DocumentID uint   `gorm:"index:idx_revision_doc_created" json:"document_id"`
	Title      string `gorm:"size:512"                       json:"title"`
	Content    string `gorm:"type:text"                      json:"content"`
	Author     string `gorm:"size:255"                       json:"author"`
	// Summary 可能以 HTML 转义形式保存，展示前解码
	Summary string `gorm:"type:text" json:"summary"`
	// Autosave 自动保存产生的临时修订，不参与编号
	Autosave  bool      `gorm:"index"                          json:"autosave"`
	CreatedAt time.Time `gorm:"index:idx_revision_doc_created" json:"created_at"`
}
