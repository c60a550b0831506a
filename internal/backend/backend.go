// Package backend 根据配置构造搜索后端，供 HTTP 服务和重建命令共用。
package backend

import (
	"context"
	"errors"
	"fmt"

	"problem-search-go/internal/config"
	"problem-search-go/pkg/bleveidx"
	"problem-search-go/pkg/es"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"
)

const (
	KindElasticsearch = "elasticsearch"
	KindBleve         = "bleve"
)

// ErrUnknownBackend 表示 search.backend 配置了不支持的后端。
var ErrUnknownBackend = errors.New("unknown search backend")

// Open 按 search.backend 打开搜索后端。返回的 close 函数在进程退出前调用。
func Open(ctx context.Context, cfg *config.Config) (searchindex.Backend, func() error, error) {
	switch cfg.Search.Backend {
	case KindElasticsearch, "":
		client, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			return nil, nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
		}
		idx := es.NewProblemIndex(client, cfg.Elasticsearch.IndexName)
		if err := idx.EnsureIndex(ctx); err != nil {
			return nil, nil, fmt.Errorf("初始化索引失败: %w", err)
		}
		log.Infof("搜索后端: elasticsearch, 索引 '%s'", cfg.Elasticsearch.IndexName)
		return idx, func() error { return nil }, nil

	case KindBleve:
		var (
			idx *bleveidx.ProblemIndex
			err error
		)
		if cfg.Bleve.Path == "" {
			idx, err = bleveidx.NewMemOnly()
		} else {
			idx, err = bleveidx.Open(cfg.Bleve.Path)
		}
		if err != nil {
			return nil, nil, err
		}
		log.Infof("搜索后端: bleve, 路径 '%s'", cfg.Bleve.Path)
		return idx, idx.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Search.Backend)
	}
}
