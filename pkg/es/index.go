package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/searchindex"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexNotFoundType = "index_not_found_exception"

// ProblemIndex 实现了基于 Elasticsearch 的 searchindex.Backend。
type ProblemIndex struct {
	client esapi.Transport
	index  string
}

// NewProblemIndex 创建一个操作指定索引的 ProblemIndex。client 通常是 *elasticsearch.Client。
func NewProblemIndex(client esapi.Transport, indexName string) *ProblemIndex {
	return &ProblemIndex{client: client, index: indexName}
}

// Upsert 写入或整体替换 key 处的文档。不强制 refresh，写入在下一个刷新周期后可见。
func (p *ProblemIndex) Upsert(ctx context.Context, domainID string, docID int64, doc model.ProblemIndexDoc) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化索引文档失败: %w", err)
	}

	res, err := p.doDocument(ctx, http.MethodPut, model.IndexKey(domainID, docID), bytes.NewReader(docBytes))
	if err != nil {
		return fmt.Errorf("index %s: %w", model.IndexKey(domainID, docID), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return decodeError("index", res)
	}
	return nil
}

// Remove 删除 key 处的文档。文档不存在时返回 searchindex.ErrNotFound，不做特殊处理。
func (p *ProblemIndex) Remove(ctx context.Context, domainID string, docID int64) error {
	res, err := p.doDocument(ctx, http.MethodDelete, model.IndexKey(domainID, docID), nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", model.IndexKey(domainID, docID), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return decodeError("delete", res)
	}
	return nil
}

// Purge 按域或全部删除文档。索引不存在时返回包装了 searchindex.ErrIndexNotFound 的错误。
func (p *ProblemIndex) Purge(ctx context.Context, scope searchindex.Scope) error {
	var query map[string]interface{}
	if scope.All() {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{
			"match": map[string]interface{}{"domainId": scope.DomainID},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"query": query}); err != nil {
		return fmt.Errorf("failed to encode purge query: %w", err)
	}

	res, err := esapi.DeleteByQueryRequest{
		Index: []string{p.index},
		Body:  &buf,
	}.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("delete_by_query %s: %w", scope, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return decodeError("delete_by_query", res)
	}
	return nil
}

// Refresh 强制刷新索引，使之前的写入立即可被搜索到。
func (p *ProblemIndex) Refresh(ctx context.Context) error {
	res, err := esapi.IndicesRefreshRequest{Index: []string{p.index}}.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return decodeError("indices.refresh", res)
	}
	return nil
}

// Get 按 key 直接读取文档，绕过相关度排序。
func (p *ProblemIndex) Get(ctx context.Context, key string) (model.ProblemIndexDoc, error) {
	var doc model.ProblemIndexDoc
	res, err := p.doDocument(ctx, http.MethodGet, key, nil)
	if err != nil {
		return doc, fmt.Errorf("get %s: %w", key, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return doc, decodeError("get", res)
	}

	var body struct {
		Found  bool                  `json:"found"`
		Source model.ProblemIndexDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return doc, fmt.Errorf("failed to decode get response: %w", err)
	}
	if !body.Found {
		return doc, searchindex.ErrNotFound
	}
	return body.Source, nil
}

// Search 执行带域过滤的相关度查询。域过滤放在 post_filter 中，只影响命中范围，不影响打分。
func (p *ProblemIndex) Search(ctx context.Context, q searchindex.Query) (model.SearchResult, error) {
	var result model.SearchResult

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchBody(q)); err != nil {
		return result, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  &buf,
	}.Do(ctx, p.client)
	if err != nil {
		return result, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return result, decodeError("search", res)
	}

	var esResponse struct {
		Hits struct {
			Total json.RawMessage `json:"total"`
			Hits  []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return result, fmt.Errorf("failed to decode es response: %w", err)
	}

	result.Total, result.CountRelation, err = parseTotal(esResponse.Hits.Total)
	if err != nil {
		return result, err
	}
	result.Hits = make([]string, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		result.Hits = append(result.Hits, hit.ID)
	}
	return result, nil
}

// doDocument 对 /<index>/_doc/<key> 发起请求。
// esapi 不会转义文档 ID，而 key 中包含 "/"，所以这里自己构造 URL 并设置 RawPath。
func (p *ProblemIndex) doDocument(ctx context.Context, method, key string, body io.Reader) (*esapi.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, "/", body)
	if err != nil {
		return nil, err
	}
	req.URL.Path = "/" + p.index + "/_doc/" + key
	req.URL.RawPath = "/" + url.PathEscape(p.index) + "/_doc/" + url.PathEscape(key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.client.Perform(req)
	if err != nil {
		return nil, err
	}
	return &esapi.Response{StatusCode: res.StatusCode, Header: res.Header, Body: res.Body}, nil
}

func buildSearchBody(q searchindex.Query) map[string]interface{} {
	var query map[string]interface{}
	if strings.TrimSpace(q.Text) == "" {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{
			"simple_query_string": map[string]interface{}{
				"query": q.Text,
				"fields": []string{
					"tag^" + strconv.Itoa(searchindex.BoostTag),
					"pid^" + strconv.Itoa(searchindex.BoostPID),
					"title^" + strconv.Itoa(searchindex.BoostTitle),
					"content",
				},
			},
		}
	}

	should := make([]map[string]interface{}, 0, len(q.DomainIDs))
	for _, id := range q.DomainIDs {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{"domainId": id},
		})
	}

	return map[string]interface{}{
		"from":    q.From,
		"size":    q.Size,
		"_source": false,
		"query":   query,
		"post_filter": map[string]interface{}{
			"bool": map[string]interface{}{
				"minimum_should_match": 1,
				"should":               should,
			},
		},
	}
}

// parseTotal 兼容 hits.total 的两种形式：旧版本的数字与 {"value","relation"} 对象。
func parseTotal(raw json.RawMessage) (int64, model.CountRelation, error) {
	if len(raw) == 0 {
		return 0, model.CountExact, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, model.CountExact, nil
	}
	var obj struct {
		Value    int64  `json:"value"`
		Relation string `json:"relation"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, "", fmt.Errorf("failed to decode hits.total: %w", err)
	}
	if obj.Relation == "" || obj.Relation == string(model.CountExact) {
		return obj.Value, model.CountExact, nil
	}
	return obj.Value, model.CountRelation(obj.Relation), nil
}

// decodeError 将 Elasticsearch 的错误响应转换为 *searchindex.ResponseError。
func decodeError(op string, res *esapi.Response) *searchindex.ResponseError {
	rerr := &searchindex.ResponseError{Op: op, Status: res.StatusCode}

	body, _ := io.ReadAll(res.Body)
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var detail struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(payload.Error, &detail) == nil {
			rerr.Type = detail.Type
			rerr.Reason = detail.Reason
		} else {
			// 某些代理返回字符串形式的 error
			rerr.Reason = string(payload.Error)
		}
	}

	switch {
	case rerr.Type == indexNotFoundType:
		rerr.Err = searchindex.ErrIndexNotFound
	case res.StatusCode == http.StatusNotFound:
		rerr.Err = searchindex.ErrNotFound
	}
	return rerr
}
