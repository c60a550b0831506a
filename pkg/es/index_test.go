package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/searchindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport 记录收到的请求，并按顺序返回预设的响应。
type fakeTransport struct {
	requests  []*http.Request
	bodies    []string
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.bodies = append(f.bodies, body)

	resp := fakeResponse{status: http.StatusOK, body: `{}`}
	if len(f.responses) > 0 {
		resp, f.responses = f.responses[0], f.responses[1:]
	}
	return &http.Response{
		StatusCode: resp.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}

func respond(responses ...fakeResponse) *fakeTransport {
	return &fakeTransport{responses: responses}
}

func strPtr(s string) *string { return &s }

func TestUpsert_EscapesKeyInPath(t *testing.T) {
	tr := respond(fakeResponse{status: http.StatusCreated, body: `{"result":"created"}`})
	idx := NewProblemIndex(tr, "problem")

	err := idx.Upsert(context.Background(), "d1", 7, model.ProblemIndexDoc{DomainID: "d1", DocID: 7, Title: strPtr("t")})

	require.NoError(t, err)
	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodPut, tr.requests[0].Method)
	assert.Equal(t, "/problem/_doc/d1%2F7", tr.requests[0].URL.EscapedPath())
	assert.JSONEq(t, `{"domainId":"d1","docId":7,"title":"t"}`, tr.bodies[0])
}

func TestRemove_MissingKey(t *testing.T) {
	tr := respond(fakeResponse{status: http.StatusNotFound, body: `{"_index":"problem","_id":"d1/7","result":"not_found"}`})
	idx := NewProblemIndex(tr, "problem")

	err := idx.Remove(context.Background(), "d1", 7)

	assert.ErrorIs(t, err, searchindex.ErrNotFound)
	assert.Equal(t, http.MethodDelete, tr.requests[0].Method)
}

func TestPurge_Queries(t *testing.T) {
	tests := []struct {
		name  string
		scope searchindex.Scope
		want  string
	}{
		{"domain", searchindex.Scope{DomainID: "d1"}, `{"query":{"match":{"domainId":"d1"}}}`},
		{"all", searchindex.Scope{}, `{"query":{"match_all":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := respond(fakeResponse{status: http.StatusOK, body: `{"deleted":3}`})
			idx := NewProblemIndex(tr, "problem")

			require.NoError(t, idx.Purge(context.Background(), tt.scope))
			assert.Equal(t, "/problem/_delete_by_query", tr.requests[0].URL.Path)
			assert.JSONEq(t, tt.want, tr.bodies[0])
		})
	}
}

func TestPurge_IndexNotFound(t *testing.T) {
	tr := respond(fakeResponse{
		status: http.StatusNotFound,
		body:   `{"error":{"type":"index_not_found_exception","reason":"no such index [problem]"},"status":404}`,
	})
	idx := NewProblemIndex(tr, "problem")

	err := idx.Purge(context.Background(), searchindex.Scope{})

	assert.ErrorIs(t, err, searchindex.ErrIndexNotFound)
	var rerr *searchindex.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "no such index [problem]", rerr.Reason)
}

func TestRefresh(t *testing.T) {
	tr := respond()
	idx := NewProblemIndex(tr, "problem")

	require.NoError(t, idx.Refresh(context.Background()))
	assert.Equal(t, "/problem/_refresh", tr.requests[0].URL.Path)
}

func TestGet(t *testing.T) {
	tr := respond(
		fakeResponse{status: http.StatusOK, body: `{"found":true,"_source":{"domainId":"d1","docId":3,"pid":"P3"}}`},
		fakeResponse{status: http.StatusNotFound, body: `{"found":false}`},
	)
	idx := NewProblemIndex(tr, "problem")
	ctx := context.Background()

	doc, err := idx.Get(ctx, "d1/3")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.DomainID)
	assert.Equal(t, "P3", *doc.PID)
	assert.Equal(t, "/problem/_doc/d1%2F3", tr.requests[0].URL.EscapedPath())

	_, err = idx.Get(ctx, "d1/4")
	assert.ErrorIs(t, err, searchindex.ErrNotFound)
}

func TestSearch_RequestBody(t *testing.T) {
	tr := respond(fakeResponse{status: http.StatusOK, body: `{
		"hits": {
			"total": {"value": 10000, "relation": "gte"},
			"hits": [{"_id": "d1/1"}, {"_id": "d2/3"}]
		}
	}`})
	idx := NewProblemIndex(tr, "problem")

	res, err := idx.Search(context.Background(), searchindex.Query{
		Text: "graph", DomainIDs: []string{"d1", "d2"}, From: 20, Size: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.Total)
	assert.Equal(t, model.CountLowerBound, res.CountRelation)
	assert.Equal(t, []string{"d1/1", "d2/3"}, res.Hits)

	assert.Equal(t, "/problem/_search", tr.requests[0].URL.Path)
	assert.JSONEq(t, `{
		"from": 20,
		"size": 10,
		"_source": false,
		"query": {"simple_query_string": {"query": "graph", "fields": ["tag^5", "pid^4", "title^3", "content"]}},
		"post_filter": {"bool": {
			"minimum_should_match": 1,
			"should": [{"match": {"domainId": "d1"}}, {"match": {"domainId": "d2"}}]
		}}
	}`, tr.bodies[0])
}

func TestSearch_BlankTextIsMatchAll(t *testing.T) {
	body := buildSearchBody(searchindex.Query{Text: " ", DomainIDs: []string{"d"}, Size: 5})

	raw, err := json.Marshal(body["query"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_all":{}}`, string(raw))
}

func TestSearch_ErrorResponse(t *testing.T) {
	tr := respond(fakeResponse{
		status: http.StatusBadRequest,
		body:   `{"error":{"type":"search_phase_execution_exception","reason":"Result window is too large"},"status":400}`,
	})
	idx := NewProblemIndex(tr, "problem")

	_, err := idx.Search(context.Background(), searchindex.Query{DomainIDs: []string{"d"}, Size: 10})

	var rerr *searchindex.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, "search_phase_execution_exception", rerr.Type)
	assert.NotErrorIs(t, err, searchindex.ErrNotFound)
}

func TestParseTotal(t *testing.T) {
	tests := []struct {
		raw      string
		total    int64
		relation model.CountRelation
	}{
		{`7`, 7, model.CountExact},
		{`{"value":12,"relation":"eq"}`, 12, model.CountExact},
		{`{"value":10000,"relation":"gte"}`, 10000, model.CountLowerBound},
		{``, 0, model.CountExact},
	}
	for _, tt := range tests {
		total, relation, err := parseTotal(json.RawMessage(tt.raw))
		require.NoError(t, err)
		assert.Equal(t, tt.total, total, tt.raw)
		assert.Equal(t, tt.relation, relation, tt.raw)
	}
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		tr := respond(
			fakeResponse{status: http.StatusNotFound, body: ``},
			fakeResponse{status: http.StatusOK, body: `{"acknowledged":true}`},
		)
		require.NoError(t, NewProblemIndex(tr, "problem").EnsureIndex(context.Background()))
		require.Len(t, tr.requests, 2)
		assert.Equal(t, http.MethodHead, tr.requests[0].Method)
		assert.Equal(t, http.MethodPut, tr.requests[1].Method)
		assert.Contains(t, tr.bodies[1], `"domainId":   { "type": "keyword" }`)
	})

	t.Run("existing index", func(t *testing.T) {
		tr := respond(fakeResponse{status: http.StatusOK})
		require.NoError(t, NewProblemIndex(tr, "problem").EnsureIndex(context.Background()))
		assert.Len(t, tr.requests, 1)
	})

	t.Run("lost creation race", func(t *testing.T) {
		tr := respond(
			fakeResponse{status: http.StatusNotFound},
			fakeResponse{status: http.StatusBadRequest, body: `{"error":{"type":"resource_already_exists_exception","reason":"exists"}}`},
		)
		assert.NoError(t, NewProblemIndex(tr, "problem").EnsureIndex(context.Background()))
	})
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, splitAddresses(" http://a:9200, http://b:9200 ,"))
	assert.Equal(t, []string{"http://127.0.0.1:9200"}, splitAddresses(""))
}
