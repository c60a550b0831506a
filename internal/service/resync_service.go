package service

import (
	"context"
	"errors"
	"fmt"

	"problem-search-go/internal/model"
	"problem-search-go/internal/repository"
	"problem-search-go/pkg/events"
	"problem-search-go/pkg/log"

	"gorm.io/gorm"
)

// EventPublisher 发布题目事件，由 *kafka.Publisher 实现。
type EventPublisher interface {
	PublishProblemEvent(ctx context.Context, event events.ProblemEvent) error
}

// ResyncService 接口定义了单道题目的重新同步操作。
type ResyncService interface {
	Resync(ctx context.Context, domainID string, docID int64) (events.ProblemEvent, error)
}

type resyncService struct {
	problemRepo repository.ProblemRepository
	publisher   EventPublisher
}

// NewResyncService 创建一个新的 ResyncService 实例。
func NewResyncService(problemRepo repository.ProblemRepository, publisher EventPublisher) ResyncService {
	return &resyncService{problemRepo: problemRepo, publisher: publisher}
}

// Resync 从数据库读取题目的当前状态，重新发布一条事件，让消费者修正索引。
// 题目存在时发布 problem/edit，已被删除时发布 problem/del。
// 事件走与正常同步相同的主题和分区 key，不会与在途事件乱序。
func (s *resyncService) Resync(ctx context.Context, domainID string, docID int64) (events.ProblemEvent, error) {
	event := events.ProblemEvent{DomainID: domainID, DocID: docID}

	problem, err := s.problemRepo.FindByKey(ctx, domainID, docID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		event.Type = events.TypeProblemDel
	case err != nil:
		return event, fmt.Errorf("load problem %s: %w", model.IndexKey(domainID, docID), err)
	default:
		event.Type = events.TypeProblemEdit
		event.Problem = problem
	}

	if err := s.publisher.PublishProblemEvent(ctx, event); err != nil {
		log.Errorf("[ResyncService] 发布题目事件失败, key: %s, err: %v", event.Key(), err)
		return event, fmt.Errorf("publish %s: %w", event.Key(), err)
	}
	log.Infof("[ResyncService] 已重新发布题目事件, type: %s, key: %s", event.Type, event.Key())
	return event, nil
}
