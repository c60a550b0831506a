package service

import (
	"context"
	"fmt"
	"time"

	"problem-search-go/internal/metrics"
	"problem-search-go/internal/model"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"
)

// SearchOptions 是可选的分页参数，nil 表示使用默认值。
type SearchOptions struct {
	Limit *int
	Skip  *int
}

// Searcher 是执行已解析查询的搜索后端。
type Searcher interface {
	Search(ctx context.Context, q searchindex.Query) (model.SearchResult, error)
}

// SearchService 接口定义了题目搜索操作。
type SearchService interface {
	Search(ctx context.Context, domainID, query string, opts SearchOptions) (model.SearchResult, error)
}

type searchService struct {
	searcher        Searcher
	unionService    UnionService
	maxWindow       int
	defaultPageSize int
}

// NewSearchService 创建一个新的 SearchService 实例。
// maxWindow 是分页能到达的最大深度，defaultPageSize 是未指定 limit 时的页大小。
func NewSearchService(searcher Searcher, unionService UnionService, maxWindow, defaultPageSize int) SearchService {
	return &searchService{
		searcher:        searcher,
		unionService:    unionService,
		maxWindow:       maxWindow,
		defaultPageSize: defaultPageSize,
	}
}

// Search 在 domainID 及其联合域范围内搜索题目。后端错误直接返回，不重试。
func (s *searchService) Search(ctx context.Context, domainID, query string, opts SearchOptions) (model.SearchResult, error) {
	// 1. 解析可见范围
	union, err := s.unionService.GetUnion(ctx, domainID)
	if err != nil {
		return model.SearchResult{}, err
	}
	domainIDs := resolveScope(domainID, union)

	// 2. 计算分页
	from, size := pageWindow(opts, s.defaultPageSize, s.maxWindow)

	// 3. 执行查询
	start := time.Now()
	result, err := s.searcher.Search(ctx, searchindex.Query{
		Text:      query,
		DomainIDs: domainIDs,
		From:      from,
		Size:      size,
	})
	metrics.SearchDuration.WithLabelValues(metrics.StatusLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Errorf("[SearchService] 搜索失败, domainId: %s, query: '%s', err: %v", domainID, query, err)
		return model.SearchResult{}, fmt.Errorf("problem search failed: %w", err)
	}
	if result.Hits == nil {
		result.Hits = []string{}
	}
	return result, nil
}

// resolveScope 返回 domainID 加上其联合域，去重并保持顺序。
func resolveScope(domainID string, union []string) []string {
	seen := map[string]struct{}{domainID: {}}
	scope := []string{domainID}
	for _, id := range union {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		scope = append(scope, id)
	}
	return scope
}

// pageWindow 计算 from 和 size：from = min(maxWindow-size, skip)，
// 当 size 大于 maxWindow 时 from 会变成负数，这里截断为 0。
func pageWindow(opts SearchOptions, defaultPageSize, maxWindow int) (from, size int) {
	size = defaultPageSize
	if opts.Limit != nil && *opts.Limit > 0 {
		size = *opts.Limit
	}
	skip := 0
	if opts.Skip != nil && *opts.Skip > 0 {
		skip = *opts.Skip
	}
	from = min(maxWindow-size, skip)
	if from < 0 {
		from = 0
	}
	return from, size
}
