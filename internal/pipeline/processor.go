// Package pipeline 定义了题目从数据源到搜索索引的同步流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/events"
	"problem-search-go/pkg/log"
)

var (
	// ErrUnknownEvent 表示收到了无法识别的事件类型。
	ErrUnknownEvent = errors.New("unknown problem event type")
	// ErrMissingProblem 表示 add/edit 事件没有携带题目内容。
	ErrMissingProblem = errors.New("problem event without problem payload")
)

// Indexer 是增量同步需要的索引写能力，由搜索后端实现。
type Indexer interface {
	Upsert(ctx context.Context, domainID string, docID int64, doc model.ProblemIndexDoc) error
	Remove(ctx context.Context, domainID string, docID int64) error
}

// Syncer 把题目的生命周期事件同步到索引。
// 它不做去重和排序：同一 key 的重复或乱序事件由后端的 last-write-wins 覆盖写解决。
type Syncer struct {
	indexer    Indexer
	normalizer *Normalizer
}

// NewSyncer 创建一个新的 Syncer 实例。normalizer 为 nil 时使用默认的 Normalizer。
func NewSyncer(indexer Indexer, normalizer *Normalizer) *Syncer {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &Syncer{indexer: indexer, normalizer: normalizer}
}

// OnAdd 处理题目新增：转换后写入 doc.DomainID/docID。
func (s *Syncer) OnAdd(ctx context.Context, doc *model.Problem, docID int64) error {
	indexDoc := s.normalizer.Normalize(doc)
	indexDoc.DocID = docID
	return s.indexer.Upsert(ctx, doc.DomainID, docID, indexDoc)
}

// OnEdit 处理题目修改，题目自身携带域和编号。
func (s *Syncer) OnEdit(ctx context.Context, doc *model.Problem) error {
	return s.indexer.Upsert(ctx, doc.DomainID, doc.DocID, s.normalizer.Normalize(doc))
}

// OnDelete 处理题目删除。索引中不存在该 key 时的错误会原样返回给调用方。
func (s *Syncer) OnDelete(ctx context.Context, domainID string, docID int64) error {
	return s.indexer.Remove(ctx, domainID, docID)
}

// Process 根据事件类型分发到对应的处理函数，满足 kafka.EventProcessor 接口。
func (s *Syncer) Process(ctx context.Context, event events.ProblemEvent) error {
	var err error
	switch event.Type {
	case events.TypeProblemAdd:
		if event.Problem == nil {
			return fmt.Errorf("%s %s: %w", event.Type, event.Key(), ErrMissingProblem)
		}
		docID := event.DocID
		if docID == 0 {
			docID = event.Problem.DocID
		}
		err = s.OnAdd(ctx, event.Problem, docID)
	case events.TypeProblemEdit:
		if event.Problem == nil {
			return fmt.Errorf("%s %s: %w", event.Type, event.Key(), ErrMissingProblem)
		}
		err = s.OnEdit(ctx, event.Problem)
	case events.TypeProblemDel:
		err = s.OnDelete(ctx, event.DomainID, event.DocID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", event.Type, event.Key(), err)
	}
	log.Infof("[Syncer] 已同步事件 %s %s", event.Type, event.Key())
	return nil
}
