// Package database 负责初始化 MySQL 与 Redis 连接。
package database

import (
	"time"

	"doc-vector-go/internal/model"
	"doc-vector-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接并迁移元数据表。
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 元数据表：文档、项目、向量化状态、集合状态
	if err := DB.AutoMigrate(
		&model.Document{},
		&model.Project{},
		&model.DocumentVectorStatus{},
		&model.CollectionStatus{},
	); err != nil {
		log.Fatal("failed to migrate metadata tables", err)
	}

	log.Info("MySQL database connected successfully")
}
