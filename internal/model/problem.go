// Package model 定义了与数据库表和索引文档对应的 Go 结构体。
package model

// Problem 对应于数据库中的 'problems' 表，是索引的数据源。
// Title、Content、PID 为可选字段，nil 表示缺失，与空字符串区分。
type Problem struct {
	// ID 是内部自增主键，不写入索引。
	ID uint `gorm:"primaryKey" json:"_id,omitempty"`
	// DocType 是文档类型判别字段，不写入索引。
	DocType  int      `gorm:"not null;default:10" json:"docType,omitempty"`
	DomainID string   `gorm:"type:varchar(64);not null;uniqueIndex:idx_domain_doc" json:"domainId"`
	DocID    int64    `gorm:"not null;uniqueIndex:idx_domain_doc" json:"docId"`
	PID      *string  `gorm:"column:pid;type:varchar(64)" json:"pid,omitempty"`
	Owner    int64    `gorm:"not null" json:"owner"`
	Title    *string  `gorm:"type:varchar(255)" json:"title,omitempty"`
	Content  *string  `gorm:"type:longtext" json:"content,omitempty"`
	Tag      []string `gorm:"serializer:json;type:text" json:"tag,omitempty"`
	Hidden   bool     `gorm:"not null;default:false" json:"hidden"`
	NSubmit  int64    `gorm:"column:n_submit;not null;default:0" json:"nSubmit"`
	NAccept  int64    `gorm:"column:n_accept;not null;default:0" json:"nAccept"`
	// Difficulty 为 0 表示未设置。
	Difficulty int `gorm:"not null;default:0" json:"difficulty,omitempty"`

	// 以下字段属于内部数据，永远不会进入索引，也不在公开投影中。
	Data           string           `gorm:"type:longtext" json:"data,omitempty"`
	AdditionalFile []ProblemFile    `gorm:"serializer:json;type:text" json:"additional_file,omitempty"`
	Config         string           `gorm:"type:text" json:"config,omitempty"`
	Stats          map[string]int64 `gorm:"serializer:json;type:text" json:"stats,omitempty"`
	Assign         []string         `gorm:"serializer:json;type:text" json:"assign,omitempty"`
}

// ProblemFile 描述题目附带的一个文件。
type ProblemFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Problem) TableName() string {
	return "problems"
}

// ProblemPublicColumns 是全量重建索引时读取的公开投影，不包含任何内部字段。
var ProblemPublicColumns = []string{
	"domain_id", "doc_id", "pid", "owner", "title", "content", "tag",
	"hidden", "n_submit", "n_accept", "difficulty",
}
