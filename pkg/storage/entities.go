// Package storage 定义持久化实体与Repository接口
package storage

import "time"

// AccountCredential 账号凭证记录（对外导出）
// Fields是明文存储的字段；EncryptedData是AES-GCM加密后的密文块（base64），
// 解密后的字段在合并时覆盖同名明文字段
type AccountCredential struct {
	ID                   string         // 凭证ID
	Name                 string         // 凭证名称
	IntegrationAccountID string         // 关联的集成账号ID（可选）
	Fields               map[string]any // 明文字段
	EncryptedData        string         // 加密密文块
	CreateTime           time.Time      // 创建时间
}

// IntegrationAccount 集成账号记录（对外导出）
type IntegrationAccount struct {
	ID         string         // 集成账号ID
	Name       string         // 账号名称
	Kind       string         // 账号类型（如oauth2/api_key）
	Fields     map[string]any // 账号属性
	CreateTime time.Time      // 创建时间
}
