package repository

import (
	"context"
	"errors"

	"problem-search-go/internal/model"

	"gorm.io/gorm"
)

// DomainRepository 接口定义了域的数据操作方法。
type DomainRepository interface {
	// GetUnion 返回域声明的联合域列表，域不存在时返回空列表。
	GetUnion(ctx context.Context, domainID string) ([]string, error)
}

type domainRepository struct {
	db *gorm.DB
}

// NewDomainRepository 创建一个新的 DomainRepository 实例。
func NewDomainRepository(db *gorm.DB) DomainRepository {
	return &domainRepository{db: db}
}

// GetUnion 只读取 union_domains 列。
func (r *domainRepository) GetUnion(ctx context.Context, domainID string) ([]string, error) {
	var domain model.Domain
	err := r.db.WithContext(ctx).Select("domain_id", "union_domains").Where("domain_id = ?", domainID).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if domain.Union == nil {
		return []string{}, nil
	}
	return domain.Union, nil
}
