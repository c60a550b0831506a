package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"problem-search-go/internal/metrics"
	"problem-search-go/internal/model"
	"problem-search-go/internal/pipeline"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"
)

// ErrReindexRunning 表示本进程中已有一个重建任务在运行。
var ErrReindexRunning = errors.New("reindex already running")

const archiveTimeout = 30 * time.Second

// Rebuilder 执行一次全量重建，由 *pipeline.Reindexer 实现。
type Rebuilder interface {
	Run(ctx context.Context, domainID string, report pipeline.Reporter) (bool, error)
}

// ReportArchiver 把任务报告持久化，返回对象名。
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report model.ReindexReport) (string, error)
}

// ReindexService 接口定义了管理员触发的全量重建操作。
type ReindexService interface {
	Reindex(ctx context.Context, domainID string, reporter pipeline.Reporter) (model.ReindexReport, error)
}

type reindexService struct {
	rebuilder Rebuilder
	archiver  ReportArchiver
	running   atomic.Bool
}

// NewReindexService 创建一个新的 ReindexService 实例。archiver 可以为 nil。
func NewReindexService(rebuilder Rebuilder, archiver ReportArchiver) ReindexService {
	return &reindexService{rebuilder: rebuilder, archiver: archiver}
}

// reportCollector 转发进度消息并记录下来写入报告。
type reportCollector struct {
	mu       sync.Mutex
	next     pipeline.Reporter
	messages []string
}

func (c *reportCollector) Report(message string) {
	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()
	if c.next != nil {
		c.next.Report(message)
	}
}

// Reindex 运行一次重建任务。同一进程内同时只允许一个任务，重复触发返回 ErrReindexRunning。
func (s *reindexService) Reindex(ctx context.Context, domainID string, reporter pipeline.Reporter) (model.ReindexReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ReindexJobsTotal.WithLabelValues("rejected").Inc()
		return model.ReindexReport{}, ErrReindexRunning
	}
	defer s.running.Store(false)

	collector := &reportCollector{next: reporter}
	report := model.ReindexReport{
		Scope:     searchindex.Scope{DomainID: domainID}.String(),
		StartedAt: time.Now(),
	}

	ok, err := s.rebuilder.Run(ctx, domainID, collector)
	report.Success = ok && err == nil
	if err != nil {
		report.Error = err.Error()
	}
	report.Messages = collector.messages
	if report.Messages == nil {
		report.Messages = []string{}
	}
	report.FinishedAt = time.Now()
	metrics.ReindexJobsTotal.WithLabelValues(metrics.StatusLabel(err)).Inc()

	if s.archiver != nil {
		// 客户端断开不影响归档
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		object, archiveErr := s.archiver.ArchiveReport(archiveCtx, report)
		cancel()
		if archiveErr != nil {
			log.Warnf("[ReindexService] 归档任务报告失败, scope: %s, err: %v", report.Scope, archiveErr)
		} else {
			report.ArchiveObject = object
		}
	}

	return report, err
}
