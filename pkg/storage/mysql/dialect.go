// Package mysql 提供MySQL方言与聚合Repository构造
package mysql

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/LENAX/flow-engine/pkg/storage/sqlrepo"
)

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// CreateTableSQL 转换DDL为MySQL兼容格式
// MySQL的TEXT列不能作主键，主键列改用VARCHAR(64)（ID均为UUID）
func (d *MySQLDialect) CreateTableSQL(schema string) string {
	result := schema
	result = strings.ReplaceAll(result, "TEXT PRIMARY KEY", "VARCHAR(64) PRIMARY KEY")
	result = strings.ReplaceAll(result, "INTEGER NOT NULL DEFAULT 0", "TINYINT NOT NULL DEFAULT 0")
	return result
}

// NewFlowAggregateRepoFromDSN 通过DSN创建聚合Repository（对外导出）
func NewFlowAggregateRepoFromDSN(dsn string) (*sqlrepo.FlowAggregateRepo, error) {
	// 时间列按time.Time读写
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return sqlrepo.NewFlowAggregateRepo(db, NewMySQLDialect())
}
