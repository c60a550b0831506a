package model

import "time"

// Domain 对应于数据库中的 'domains' 表。
// Union 列出了其内容在本域搜索中同样可见的其他域。
type Domain struct {
	// DomainID 是域的唯一标识符，作为主键。
	DomainID string `gorm:"type:varchar(64);primaryKey" json:"domainId"`
	// Name 是域的显示名称。
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	// Union 是声明的联合域列表，以 JSON 数组形式存储。
	Union []string `gorm:"column:union_domains;serializer:json;type:text" json:"union"`
	// CreatedAt 由 GORM 自动管理，记录创建时间。
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	// UpdatedAt 由 GORM 自动管理，记录最后更新时间。
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Domain) TableName() string {
	return "domains"
}
