// Package postgres 提供PostgreSQL方言与聚合Repository构造
package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/LENAX/flow-engine/pkg/storage/sqlrepo"
)

// PostgresDialect PostgreSQL方言实现（对外导出）
type PostgresDialect struct{}

// NewPostgresDialect 创建PostgreSQL方言实例
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

// Name 返回方言名称
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// CreateTableSQL 转换DDL为PostgreSQL兼容格式
func (d *PostgresDialect) CreateTableSQL(schema string) string {
	result := schema
	// DATETIME替换为TIMESTAMP
	result = strings.ReplaceAll(result, "DATETIME", "TIMESTAMP")
	// 布尔列以INTEGER声明，PostgreSQL使用SMALLINT
	result = strings.ReplaceAll(result, "INTEGER NOT NULL DEFAULT 0", "SMALLINT NOT NULL DEFAULT 0")
	return result
}

// NewFlowAggregateRepoFromDSN 通过DSN创建聚合Repository（对外导出）
func NewFlowAggregateRepoFromDSN(dsn string) (*sqlrepo.FlowAggregateRepo, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return sqlrepo.NewFlowAggregateRepo(db, NewPostgresDialect())
}
