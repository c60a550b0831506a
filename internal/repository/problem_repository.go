// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"context"
	"fmt"

	"problem-search-go/internal/model"

	"gorm.io/gorm"
)

// DefaultBatchSize 是流式遍历题目时每批读取的行数。
const DefaultBatchSize = 100

// ProblemRepository 接口定义了索引同步需要的题目读取方法。
type ProblemRepository interface {
	// ForEachPublic 按公开投影分批遍历题目，domainID 为空时遍历全部域。
	// fn 返回错误时遍历立即停止并返回该错误。
	ForEachPublic(ctx context.Context, domainID string, fn func(*model.Problem) error) error
	FindByKey(ctx context.Context, domainID string, docID int64) (*model.Problem, error)
	Count(ctx context.Context, domainID string) (int64, error)
}

type problemRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewProblemRepository 创建一个新的 ProblemRepository 实例。batchSize<=0 时使用 DefaultBatchSize。
func NewProblemRepository(db *gorm.DB, batchSize int) ProblemRepository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &problemRepository{db: db, batchSize: batchSize}
}

func (r *problemRepository) scoped(ctx context.Context, domainID string) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Problem{})
	if domainID != "" {
		tx = tx.Where("domain_id = ?", domainID)
	}
	return tx
}

// ForEachPublic 使用 FindInBatches 按主键顺序分批读取，内存中同时最多只有一批题目。
func (r *problemRepository) ForEachPublic(ctx context.Context, domainID string, fn func(*model.Problem) error) error {
	var batch []model.Problem
	var cbErr error
	res := r.scoped(ctx, domainID).
		Select(append([]string{"id"}, model.ProblemPublicColumns...)).
		FindInBatches(&batch, r.batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					cbErr = err
					return err
				}
			}
			return nil
		})
	if cbErr != nil {
		return cbErr
	}
	if res.Error != nil {
		return fmt.Errorf("遍历题目失败: %w", res.Error)
	}
	return nil
}

// FindByKey 按公开投影读取一道题目，不存在时返回 gorm.ErrRecordNotFound。
func (r *problemRepository) FindByKey(ctx context.Context, domainID string, docID int64) (*model.Problem, error) {
	var p model.Problem
	err := r.scoped(ctx, domainID).
		Select(append([]string{"id"}, model.ProblemPublicColumns...)).
		Where("doc_id = ?", docID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Count 统计范围内的题目数量，domainID 为空时统计全部域。
func (r *problemRepository) Count(ctx context.Context, domainID string) (int64, error) {
	var n int64
	err := r.scoped(ctx, domainID).Count(&n).Error
	return n, err
}
