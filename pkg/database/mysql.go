// Package database 负责初始化 MySQL 和 Redis 连接。
package database

import (
	"time"

	"problem-search-go/internal/config"
	"problem-search-go/internal/model"
	"problem-search-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitMySQL 初始化 MySQL 数据库连接，按配置决定是否自动建表。
func InitMySQL(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&model.Problem{}, &model.Domain{}); err != nil {
			return nil, err
		}
		log.Info("MySQL tables migrated")
	}

	log.Info("MySQL database connected successfully")
	return db, nil
}
