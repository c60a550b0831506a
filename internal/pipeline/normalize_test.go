package pipeline

import (
	"encoding/json"
	"testing"

	"problem-search-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalize_TitleStripsBracketsAndSplitsCode(t *testing.T) {
	doc := &model.Problem{DomainID: "system", DocID: 1, Title: strPtr("[Hello] AB123 (x)")}

	out := Normalize(doc)

	require.NotNil(t, out.Title)
	assert.Equal(t, " Hello  AB123 AB 123  x ", *out.Title)
}

func TestNormalize_FullWidthBrackets(t *testing.T) {
	doc := &model.Problem{DomainID: "system", DocID: 1,
		Title:   strPtr("【模板】线段树（加强版）"),
		Content: strPtr("输入 [1, n] 的区间 (含端点)"),
	}

	out := Normalize(doc)

	assert.Equal(t, " 模板 线段树 加强版 ", *out.Title)
	assert.Equal(t, "输入  1, n  的区间  含端点 ", *out.Content)
}

func TestNormalize_OnlyFirstCodeIsSplit(t *testing.T) {
	doc := &model.Problem{DomainID: "system", DocID: 1,
		Title: strPtr("AB1 CD2"),
		PID:   strPtr("ABC1001"),
	}

	out := Normalize(doc)

	assert.Equal(t, "AB1 AB 1 CD2", *out.Title)
	assert.Equal(t, "ABC1001 ABC 1001", *out.PID)
}

func TestNormalize_TextRewrites(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    string
	}{
		{"no brackets unchanged", "Two Sum", "plain text", "Two Sum"},
		{"no code unchanged", "最短路 shortest path 123", "", "最短路 shortest path 123"},
		{"single letter is not a code", "P1001 problem", "", "P1001 problem"},
		{"first code split only", "AB123 CD456", "", "AB123 AB 123 CD456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &model.Problem{DomainID: "system", DocID: 1, Title: strPtr(tt.title), Content: strPtr(tt.content)}

			out := Normalize(doc)

			assert.Equal(t, tt.want, *out.Title)
			assert.Equal(t, tt.content, *out.Content)
		})
	}
}

func TestNormalize_BracketStripIsIdempotent(t *testing.T) {
	first := Normalize(&model.Problem{DomainID: "system", DocID: 1, Content: strPtr("[a] 【b】 (c) （d）")})
	second := Normalize(&model.Problem{DomainID: "system", DocID: 1, Content: first.Content})

	assert.Equal(t, *first.Content, *second.Content)
}

func TestNormalize_PIDKeepsBrackets(t *testing.T) {
	// pid 只做编号拆分，不去括号；单个字母不构成编号
	doc := &model.Problem{DomainID: "system", DocID: 1, PID: strPtr("P(1001)")}

	out := Normalize(doc)

	assert.Equal(t, "P(1001)", *out.PID)
}

func TestNormalize_MissingFieldsStayMissing(t *testing.T) {
	doc := &model.Problem{DomainID: "system", DocID: 7}

	out := Normalize(doc)

	assert.Nil(t, out.Title)
	assert.Nil(t, out.Content)
	assert.Nil(t, out.PID)
	assert.Nil(t, out.Tag)
	assert.Nil(t, out.Difficulty)
	assert.Equal(t, "system", out.DomainID)
	assert.Equal(t, int64(7), out.DocID)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	doc := &model.Problem{DomainID: "d", DocID: 1,
		Title:   strPtr("[A] XY9"),
		Content: strPtr("(c)"),
		PID:     strPtr("XY9"),
		Tag:     []string{"dp"},
	}

	out := Normalize(doc)
	out.Tag[0] = "changed"

	assert.Equal(t, "[A] XY9", *doc.Title)
	assert.Equal(t, "(c)", *doc.Content)
	assert.Equal(t, "XY9", *doc.PID)
	assert.Equal(t, []string{"dp"}, doc.Tag)
}

func TestNormalize_InternalFieldsNeverIndexed(t *testing.T) {
	doc := &model.Problem{
		ID:             42,
		DocType:        10,
		DomainID:       "d",
		DocID:          1,
		Title:          strPtr("t"),
		Data:           "testdata",
		AdditionalFile: []model.ProblemFile{{Name: "a.pdf", Size: 10}},
		Config:         "type: default",
		Stats:          map[string]int64{"AC": 1},
		Assign:         []string{"g"},
		Owner:          2,
		Hidden:         true,
	}

	raw, err := json.Marshal(Normalize(doc))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, name := range []string{"_id", "docType", "data", "additional_file", "config", "stats", "assign"} {
		assert.NotContains(t, fields, name)
	}
	assert.Equal(t, float64(2), fields["owner"])
	assert.Equal(t, true, fields["hidden"])
}

func TestNewNormalizer_ExtraOmit(t *testing.T) {
	n, err := NewNormalizer([]string{"owner", "content"})
	require.NoError(t, err)

	out := n.Normalize(&model.Problem{DomainID: "d", DocID: 1, Owner: 3, Content: strPtr("c"), Title: strPtr("t")})

	assert.Nil(t, out.Owner)
	assert.Nil(t, out.Content)
	require.NotNil(t, out.Title)
	assert.Equal(t, "t", *out.Title)
}

func TestNewNormalizer_UnknownField(t *testing.T) {
	_, err := NewNormalizer([]string{"title"})
	assert.ErrorIs(t, err, ErrUnknownOmitField)
}
