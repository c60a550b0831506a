// Package events 定义了通过 Kafka 传递的题目变更事件。
package events

import "problem-search-go/internal/model"

// 题目事件类型。
const (
	TypeProblemAdd  = "problem/add"
	TypeProblemEdit = "problem/edit"
	TypeProblemDel  = "problem/del"
)

// ProblemEvent 是题目库发出的一条变更通知。
// add 和 edit 携带 Problem，del 只携带 DomainID 和 DocID。
type ProblemEvent struct {
	Type     string         `json:"type"`
	DomainID string         `json:"domainId"`
	DocID    int64          `json:"docId"`
	Problem  *model.Problem `json:"problem,omitempty"`
}

// Key 返回事件对应的索引 key，同时作为 Kafka 消息 key，保证同一道题的事件有序。
func (e ProblemEvent) Key() string {
	domainID, docID := e.DomainID, e.DocID
	if e.Problem != nil {
		if domainID == "" {
			domainID = e.Problem.DomainID
		}
		if docID == 0 {
			docID = e.Problem.DocID
		}
	}
	return model.IndexKey(domainID, docID)
}
