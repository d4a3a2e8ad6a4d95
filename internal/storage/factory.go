// Package storage 提供按配置选择数据库实现的工厂
package storage

import (
	"fmt"

	pkgstorage "github.com/LENAX/flow-engine/pkg/storage"
	"github.com/LENAX/flow-engine/pkg/storage/mysql"
	"github.com/LENAX/flow-engine/pkg/storage/postgres"
	pkgsqlite "github.com/LENAX/flow-engine/pkg/storage/sqlite"
)

// NewFlowAggregateRepo 创建聚合Repository（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
// dsn: 数据库连接字符串
func NewFlowAggregateRepo(dbType, dsn string) (pkgstorage.FlowAggregateRepository, error) {
	switch dbType {
	case "sqlite":
		return pkgsqlite.NewFlowAggregateRepoFromDSN(dsn)
	case "mysql":
		return mysql.NewFlowAggregateRepoFromDSN(dsn)
	case "postgres", "postgresql":
		return postgres.NewFlowAggregateRepoFromDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
