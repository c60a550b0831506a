// Package bleveidx 基于嵌入式 bleve 索引实现 searchindex.Backend，
// 用于没有 Elasticsearch 的单机部署和进程内测试。
package bleveidx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/searchindex"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	fieldDomainID = "domainId"
	fieldTag      = "tag"
	fieldPID      = "pid"
	fieldTitle    = "title"
	fieldContent  = "content"
	// fieldSource 保存序列化后的文档供按 key 读取，只存储不索引
	fieldSource = "sourceJson"

	purgePageSize = 1000
)

// ProblemIndex 是基于 bleve 的题目索引，写入返回后即可被搜索到。
type ProblemIndex struct {
	index bleve.Index
}

// NewMemOnly 创建内存索引。
func NewMemOnly() (*ProblemIndex, error) {
	idx, err := bleve.NewMemOnly(createIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	return &ProblemIndex{index: idx}, nil
}

// Open 打开 path 处的索引，不存在时创建。
func Open(path string) (*ProblemIndex, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, createIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	return &ProblemIndex{index: idx}, nil
}

// Close 关闭底层索引。
func (p *ProblemIndex) Close() error {
	return p.index.Close()
}

func createIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// domainId 使用 keyword 分析器，可见范围过滤需要精确匹配
	domainField := bleve.NewTextFieldMapping()
	domainField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(fieldDomainID, domainField)

	for _, name := range []string{fieldTag, fieldPID, fieldTitle, fieldContent} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		docMapping.AddFieldMappingsAt(name, f)
	}

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Index = false
	sourceField.Store = true
	docMapping.AddFieldMappingsAt(fieldSource, sourceField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Upsert 写入或整体替换 key 处的文档。
func (p *ProblemIndex) Upsert(_ context.Context, domainID string, docID int64, doc model.ProblemIndexDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to flatten document: %w", err)
	}
	fields[fieldSource] = string(raw)

	key := model.IndexKey(domainID, docID)
	if err := p.index.Index(key, fields); err != nil {
		return fmt.Errorf("index %s: %w", key, err)
	}
	return nil
}

// Remove 删除 key 处的文档，文档不存在时返回 searchindex.ErrNotFound。
func (p *ProblemIndex) Remove(_ context.Context, domainID string, docID int64) error {
	key := model.IndexKey(domainID, docID)
	existing, err := p.index.Document(key)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", key, err)
	}
	if existing == nil {
		return fmt.Errorf("delete %s: %w", key, searchindex.ErrNotFound)
	}
	if err := p.index.Delete(key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Purge 按页删除范围内的全部文档。
func (p *ProblemIndex) Purge(ctx context.Context, scope searchindex.Scope) error {
	var q query.Query
	if scope.All() {
		q = bleve.NewMatchAllQuery()
	} else {
		tq := bleve.NewTermQuery(scope.DomainID)
		tq.SetField(fieldDomainID)
		q = tq
	}

	for {
		req := bleve.NewSearchRequestOptions(q, purgePageSize, 0, false)
		res, err := p.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("purge %s: %w", scope, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := p.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := p.index.Batch(batch); err != nil {
			return fmt.Errorf("purge %s: %w", scope, err)
		}
	}
}

// Refresh 无需操作，bleve 的写入立即可见。
func (p *ProblemIndex) Refresh(context.Context) error {
	return nil
}

// Get 返回 key 处存储的文档。
func (p *ProblemIndex) Get(ctx context.Context, key string) (model.ProblemIndexDoc, error) {
	var doc model.ProblemIndexDoc

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{key}), 1, 0, false)
	req.Fields = []string{fieldSource}
	res, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return doc, fmt.Errorf("get %s: %w", key, err)
	}
	if len(res.Hits) == 0 {
		return doc, searchindex.ErrNotFound
	}

	raw, ok := res.Hits[0].Fields[fieldSource].(string)
	if !ok {
		return doc, fmt.Errorf("get %s: stored source missing", key)
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return doc, fmt.Errorf("get %s: %w", key, err)
	}
	return doc, nil
}

// Search 在 tag、pid、title、content 上做加权析取查询。
// 域过滤的权重为 0，只限制命中范围，不影响打分。
func (p *ProblemIndex) Search(ctx context.Context, q searchindex.Query) (model.SearchResult, error) {
	var result model.SearchResult

	req := bleve.NewSearchRequestOptions(
		bleve.NewConjunctionQuery(relevanceQuery(q.Text), domainFilter(q.DomainIDs)),
		q.Size, q.From, false,
	)
	res, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return result, fmt.Errorf("bleve search failed: %w", err)
	}

	result.Total = int64(res.Total)
	result.CountRelation = model.CountExact
	result.Hits = make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		result.Hits = append(result.Hits, hit.ID)
	}
	return result, nil
}

func relevanceQuery(text string) query.Query {
	if strings.TrimSpace(text) == "" {
		return bleve.NewMatchAllQuery()
	}
	boosts := []struct {
		field string
		boost float64
	}{
		{fieldTag, searchindex.BoostTag},
		{fieldPID, searchindex.BoostPID},
		{fieldTitle, searchindex.BoostTitle},
		{fieldContent, searchindex.BoostContent},
	}
	disjuncts := make([]query.Query, 0, len(boosts))
	for _, b := range boosts {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(b.field)
		mq.SetBoost(b.boost)
		disjuncts = append(disjuncts, mq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

func domainFilter(domainIDs []string) query.Query {
	should := make([]query.Query, 0, len(domainIDs))
	for _, id := range domainIDs {
		tq := bleve.NewTermQuery(id)
		tq.SetField(fieldDomainID)
		tq.SetBoost(0)
		should = append(should, tq)
	}
	return bleve.NewDisjunctionQuery(should...)
}
