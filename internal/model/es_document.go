package model

import "strconv"

// ProblemIndexDoc 定义了存储在搜索索引中的题目文档结构。
// 它是 Problem 的投影：只包含允许进入索引的字段，内部字段在类型层面就无法写入。
type ProblemIndexDoc struct {
	DomainID   string   `json:"domainId"`
	DocID      int64    `json:"docId"`
	PID        *string  `json:"pid,omitempty"`
	Owner      *int64   `json:"owner,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Tag        []string `json:"tag,omitempty"`
	Hidden     *bool    `json:"hidden,omitempty"`
	NSubmit    *int64   `json:"nSubmit,omitempty"`
	NAccept    *int64   `json:"nAccept,omitempty"`
	Difficulty *int     `json:"difficulty,omitempty"`
}

// IndexKey 返回题目在索引中的主键 "<domainId>/<docId>"。
func IndexKey(domainID string, docID int64) string {
	return domainID + "/" + strconv.FormatInt(docID, 10)
}

// CountRelation 说明 SearchResult.Total 是否为精确值。
type CountRelation string

const (
	// CountExact 表示 Total 为精确命中数。
	CountExact CountRelation = "eq"
	// CountLowerBound 表示后端截断了计数，Total 只是下界。
	CountLowerBound CountRelation = "gte"
)

// SearchResult 是题目搜索的返回结构，Hits 为按相关度排序的 IndexKey。
type SearchResult struct {
	Total         int64         `json:"total"`
	CountRelation CountRelation `json:"countRelation"`
	Hits          []string      `json:"hits"`
}
