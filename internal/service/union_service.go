// Package service 提供了题目搜索和索引维护的业务逻辑。
package service

import (
	"context"
	"fmt"

	"problem-search-go/internal/repository"
	"problem-search-go/pkg/log"
)

// UnionService 解析域的联合域列表。
type UnionService interface {
	GetUnion(ctx context.Context, domainID string) ([]string, error)
}

type unionService struct {
	domainRepo repository.DomainRepository
	cache      repository.UnionCache
}

// NewUnionService 创建一个新的 UnionService 实例。cache 可以为 nil。
func NewUnionService(domainRepo repository.DomainRepository, cache repository.UnionCache) UnionService {
	return &unionService{domainRepo: domainRepo, cache: cache}
}

// GetUnion 先查 Redis 缓存，未命中或缓存不可用时回源 MySQL 并回填缓存。
func (s *unionService) GetUnion(ctx context.Context, domainID string) ([]string, error) {
	if s.cache != nil {
		union, ok, err := s.cache.Get(ctx, domainID)
		if err != nil {
			log.Warnf("[UnionService] 读取联合域缓存失败, domainId: %s, err: %v", domainID, err)
		} else if ok {
			return union, nil
		}
	}

	union, err := s.domainRepo.GetUnion(ctx, domainID)
	if err != nil {
		return nil, fmt.Errorf("查询联合域失败: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, domainID, union); err != nil {
			log.Warnf("[UnionService] 写入联合域缓存失败, domainId: %s, err: %v", domainID, err)
		}
	}
	return union, nil
}
