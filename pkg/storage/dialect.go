package storage

// Dialect SQL方言接口（对外导出）
// 屏蔽sqlite/postgres/mysql之间的DDL差异；基准DDL以SQLite风格书写，
// 其余方言在建表前做等价转换
type Dialect interface {
	// Name 方言名称
	Name() string
	// CreateTableSQL 将基准DDL转换为目标数据库兼容格式
	CreateTableSQL(schema string) string
}
