package model

import "time"

// ReindexReport 记录一次全量重建索引任务的结果，可归档到对象存储。
type ReindexReport struct {
	Scope      string    `json:"scope"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Messages   []string  `json:"messages"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	// ArchiveObject 是报告在对象存储中的对象名，未归档时为空。
	ArchiveObject string `json:"archiveObject,omitempty"`
}
