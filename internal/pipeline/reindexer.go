package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"

	"golang.org/x/sync/errgroup"
)

// Source 按公开投影逐条遍历题目。domainID 为空时遍历全部域。
// 实现必须流式读取，不能把整个语料加载到内存中。
type Source interface {
	ForEachPublic(ctx context.Context, domainID string, fn func(*model.Problem) error) error
}

// Reporter 接收重建过程中的进度消息。
type Reporter interface {
	Report(message string)
}

// ReporterFunc 让普通函数满足 Reporter 接口。
type ReporterFunc func(message string)

// Report 调用 f(message)。
func (f ReporterFunc) Report(message string) { f(message) }

// LogReporter 把进度写入日志。
type LogReporter struct{}

// Report 实现 Reporter。
func (LogReporter) Report(message string) {
	log.Infof("[Reindexer] %s", message)
}

// ReindexOptions 控制全量重建的节奏。
type ReindexOptions struct {
	// ReportEvery 为每处理多少条题目汇报一次进度，<=0 时使用 1000。
	ReportEvery int
	// Workers 为并发写索引的上限，<=1 时逐条写入。
	Workers int
}

// Reindexer 从数据源全量重建搜索索引。
type Reindexer struct {
	source     Source
	writer     searchindex.Writer
	normalizer *Normalizer
	opts       ReindexOptions
}

// NewReindexer 创建一个新的 Reindexer 实例。normalizer 为 nil 时使用默认的 Normalizer。
func NewReindexer(source Source, writer searchindex.Writer, normalizer *Normalizer, opts ReindexOptions) *Reindexer {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Reindexer{source: source, writer: writer, normalizer: normalizer, opts: opts}
}

// Run 清空 domainID 对应范围（为空则全部）的索引，再从数据源逐条重建，最后强制刷新。
// 任何未被忽略的错误都会中止任务，此时索引处于部分清空、部分重建的状态，不做回滚。
func (r *Reindexer) Run(ctx context.Context, domainID string, report Reporter) (bool, error) {
	if report == nil {
		report = LogReporter{}
	}
	scope := searchindex.Scope{DomainID: domainID}
	log.Infof("[Reindexer] 开始重建索引, scope: %s", scope)

	// 1. 清空旧数据。索引尚不存在时视为空索引继续
	if err := r.writer.Purge(ctx, scope); err != nil {
		if !errors.Is(err, searchindex.ErrIndexNotFound) {
			log.Errorf("[Reindexer] 清空索引失败, scope: %s, Error: %v", scope, err)
			return false, fmt.Errorf("purge %s: %w", scope, err)
		}
		log.Infof("[Reindexer] 索引不存在, 跳过清空, scope: %s", scope)
	}

	// 2. 流式遍历并写入
	var (
		count    atomic.Int64
		reportMu sync.Mutex
	)
	// 计数和汇报在同一把锁内完成，并发写入时进度消息仍然递增
	indexed := func() {
		reportMu.Lock()
		defer reportMu.Unlock()
		n := count.Add(1)
		if n%int64(r.opts.ReportEvery) == 0 {
			report.Report(fmt.Sprintf("%d problems indexed", n))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	streamErr := r.source.ForEachPublic(gctx, domainID, func(pdoc *model.Problem) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		// 在回调内完成转换：数据源可能在下一批复用 pdoc 指向的内存
		doc := r.normalizer.Normalize(pdoc)
		if r.opts.Workers == 1 {
			if err := r.writer.Upsert(gctx, doc.DomainID, doc.DocID, doc); err != nil {
				return fmt.Errorf("index %s: %w", model.IndexKey(doc.DomainID, doc.DocID), err)
			}
			indexed()
			return nil
		}
		g.Go(func() error {
			if err := r.writer.Upsert(gctx, doc.DomainID, doc.DocID, doc); err != nil {
				return fmt.Errorf("index %s: %w", model.IndexKey(doc.DomainID, doc.DocID), err)
			}
			indexed()
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Errorf("[Reindexer] 写入索引失败, 已处理 %d 条, Error: %v", count.Load(), err)
		return false, err
	}
	if streamErr != nil {
		log.Errorf("[Reindexer] 遍历题目失败, 已处理 %d 条, Error: %v", count.Load(), streamErr)
		return false, streamErr
	}

	// 3. 强制刷新，任务返回成功时重建结果立即可查
	if err := r.writer.Refresh(ctx); err != nil {
		log.Errorf("[Reindexer] 刷新索引失败: %v", err)
		return false, fmt.Errorf("refresh: %w", err)
	}

	log.Infow("[Reindexer] 重建完成", "scope", scope.String(), "indexed", count.Load())
	return true, nil
}
