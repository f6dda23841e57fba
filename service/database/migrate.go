/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies dpp-integration-service/service/models, gorm.io/gorm
 * @refs service/models/connector.go, service/models/sync_run.go
 */

package database

import (
	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// SAP连接器相关表
	err := db.AutoMigrate(
		&models.ConnectorConfig{},
		&models.SyncRun{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化基础数据...")

	// 连接器的枚举值由meta包的注册表提供，无需数据库存储
	log.Printf("支持的API类型: %v", meta.GetAllAPITypes())
	log.Printf("支持的同步频率: %v", meta.GetAllSyncFrequencies())
	log.Printf("支持的同步方向: %v", meta.GetAllSyncDirections())

	log.Println("基础数据初始化完成")
	return nil
}
