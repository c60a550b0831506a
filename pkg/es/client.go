// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"problem-search-go/internal/config"
	"problem-search-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// problemMapping 是题目索引的映射。domainId 使用 keyword，保证按域过滤是精确匹配。
const problemMapping = `{
	"mappings": {
		"properties": {
			"domainId":   { "type": "keyword" },
			"docId":      { "type": "long" },
			"pid":        { "type": "text" },
			"title":      { "type": "text" },
			"content":    { "type": "text" },
			"tag":        { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
			"owner":      { "type": "long" },
			"hidden":     { "type": "boolean" },
			"nSubmit":    { "type": "long" },
			"nAccept":    { "type": "long" },
			"difficulty": { "type": "integer" }
		}
	}
}`

// NewClient 根据配置创建 Elasticsearch 客户端。进程内只创建一次，客户端自带连接池，可并发使用。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: splitAddresses(esCfg.Addresses),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

func splitAddresses(addresses string) []string {
	var out []string
	for _, a := range strings.Split(addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = []string{"http://127.0.0.1:9200"}
	}
	return out
}

// EnsureIndex 检查索引是否存在，如果不存在则使用题目映射创建它。
func (p *ProblemIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{p.index}}.Do(ctx, p.client)
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()

	// 200 说明索引已存在
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", p.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return decodeError("indices.exists", res)
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: p.index,
		Body:  strings.NewReader(problemMapping),
	}.Do(ctx, p.client)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", p.index, err)
		return err
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		rerr := decodeError("indices.create", createRes)
		// 并发启动时另一个实例可能已经创建了索引
		if rerr.Type == "resource_already_exists_exception" {
			return nil
		}
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %v", p.index, rerr)
		return rerr
	}

	log.Infof("索引 '%s' 创建成功", p.index)
	return nil
}
