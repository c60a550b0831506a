// Package searchindex 定义了搜索后端共用的接口：生产环境使用 Elasticsearch，单机部署和测试使用 bleve。
package searchindex

import (
	"context"
	"errors"
	"fmt"

	"problem-search-go/internal/model"
)

var (
	// ErrIndexNotFound 表示索引本身尚未创建。
	ErrIndexNotFound = errors.New("searchindex: index not found")
	// ErrNotFound 表示 key 处没有文档。
	ErrNotFound = errors.New("searchindex: document not found")
)

// 相关度查询的字段权重，越能标识题目的字段权重越高。
const (
	BoostTag     = 5
	BoostPID     = 4
	BoostTitle   = 3
	BoostContent = 1
)

// Scope 指定清空操作的范围，零值表示全部域。
type Scope struct {
	DomainID string
}

// All 判断范围是否覆盖全部域。
func (s Scope) All() bool { return s.DomainID == "" }

func (s Scope) String() string {
	if s.All() {
		return "all"
	}
	return "domain:" + s.DomainID
}

// Query 是已经解析好可见范围和分页的查询。
type Query struct {
	// Text 为用户输入，空白时匹配所有文档
	Text string
	// DomainIDs 为可见范围，命中必须属于其中之一
	DomainIDs []string
	From      int
	Size      int
}

// Writer 是后端的写入部分，按 model.IndexKey 寻址。
type Writer interface {
	Upsert(ctx context.Context, domainID string, docID int64, doc model.ProblemIndexDoc) error
	Remove(ctx context.Context, domainID string, docID int64) error
	Purge(ctx context.Context, scope Scope) error
	Refresh(ctx context.Context) error
}

// Backend 是完整的搜索后端。
type Backend interface {
	Writer
	Get(ctx context.Context, key string) (model.ProblemIndexDoc, error)
	Search(ctx context.Context, q Query) (model.SearchResult, error)
}

// ResponseError 记录后端返回的错误响应。
type ResponseError struct {
	Op     string
	Status int
	Type   string
	Reason string
	// Err 为对应的 ErrIndexNotFound 或 ErrNotFound，其他错误为 nil
	Err error
}

func (e *ResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: status %d: %s: %s", e.Op, e.Status, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *ResponseError) Unwrap() error { return e.Err }
