// Package sqlite 提供SQLite方言与聚合Repository构造
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LENAX/flow-engine/pkg/storage/sqlrepo"
)

// SQLiteDialect SQLite方言实现（对外导出）
// 基准DDL即SQLite风格，无需转换
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言实例
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

// Name 返回方言名称
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// CreateTableSQL SQLite是基准方言，DDL原样返回
func (d *SQLiteDialect) CreateTableSQL(schema string) string {
	return schema
}

// NewFlowAggregateRepo 基于已有连接创建聚合Repository（对外导出）
func NewFlowAggregateRepo(db *sqlx.DB) (*sqlrepo.FlowAggregateRepo, error) {
	return sqlrepo.NewFlowAggregateRepo(db, NewSQLiteDialect())
}

// NewFlowAggregateRepoFromDSN 通过DSN创建聚合Repository（对外导出）
func NewFlowAggregateRepoFromDSN(dsn string) (*sqlrepo.FlowAggregateRepo, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("配置SQLite失败: %w", err)
	}
	return NewFlowAggregateRepo(db)
}

// configureSQLite 配置SQLite数据库连接
func configureSQLite(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=30000;",
		"PRAGMA wal_autocheckpoint=1000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
