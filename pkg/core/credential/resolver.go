// Package credential 提供操作调用前的凭证解密与合并
package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LENAX/flow-engine/pkg/storage"
)

// ErrCredentialNotFound 凭证记录不存在（对外导出）
var ErrCredentialNotFound = errors.New("凭证记录不存在")

// Resolved 凭证解析结果（对外导出）
type Resolved struct {
	Credentials        map[string]any              // 解密字段合并明文字段后的凭证映射
	AccountCredential  *storage.AccountCredential  // 存储的凭证记录（无凭证ID时为nil）
	IntegrationAccount *storage.IntegrationAccount // 关联的集成账号记录（无关联时为nil）
}

// Resolver 凭证解析器（对外导出）
// 使用进程级对称密钥（AES-256-GCM）解密存储的密文字段
type Resolver struct {
	credentialRepo storage.CredentialRepository
	key            []byte
}

// NewResolver 创建凭证解析器（对外导出的工厂方法）
// encryptionKey: 十六进制编码的32字节AES密钥；为空时delayed到解密时报配置错误
func NewResolver(credentialRepo storage.CredentialRepository, encryptionKey string) (*Resolver, error) {
	r := &Resolver{credentialRepo: credentialRepo}
	if encryptionKey != "" {
		key, err := hex.DecodeString(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("解析加密密钥失败: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("加密密钥长度必须为32字节，实际%d字节", len(key))
		}
		r.key = key
	}
	return r, nil
}

// Resolve 解析凭证（对外导出）
// credentialID为空时返回空凭证；记录缺失时先调用onMissing回调（让调用方把
// 进行中的run/action标记为失败），再返回ErrCredentialNotFound
func (r *Resolver) Resolve(ctx context.Context, credentialID string, onMissing func()) (*Resolved, error) {
	if credentialID == "" {
		return &Resolved{Credentials: map[string]any{}}, nil
	}

	record, err := r.credentialRepo.FindAccountCredentialByID(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("查询凭证记录失败: %w", err)
	}
	if record == nil {
		if onMissing != nil {
			onMissing()
		}
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, credentialID)
	}

	// 明文字段打底，解密字段覆盖
	merged := make(map[string]any, len(record.Fields))
	for k, v := range record.Fields {
		merged[k] = v
	}
	if record.EncryptedData != "" {
		decrypted, err := r.decrypt(record.EncryptedData)
		if err != nil {
			return nil, err
		}
		for k, v := range decrypted {
			merged[k] = v
		}
	}

	resolved := &Resolved{
		Credentials:       merged,
		AccountCredential: record,
	}

	if record.IntegrationAccountID != "" {
		account, err := r.credentialRepo.FindIntegrationAccountByID(ctx, record.IntegrationAccountID)
		if err != nil {
			return nil, fmt.Errorf("查询集成账号失败: %w", err)
		}
		resolved.IntegrationAccount = account
	}
	return resolved, nil
}

// decrypt 解密存储的密文块
// 密文格式：base64(nonce || ciphertext)，AES-256-GCM
func (r *Resolver) decrypt(encrypted string) (map[string]any, error) {
	if len(r.key) == 0 {
		return nil, fmt.Errorf("未配置加密密钥，无法解密凭证")
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("解码凭证密文失败: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("初始化AES失败: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("初始化GCM失败: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return nil, fmt.Errorf("凭证密文长度不足")
	}
	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("解密凭证失败: %w", err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, fmt.Errorf("反序列化凭证字段失败: %w", err)
	}
	return fields, nil
}

// Encrypt 加密凭证字段（对外导出）
// 供凭证写入路径使用，与decrypt互逆；nonce随机生成并拼接在密文前
func (r *Resolver) Encrypt(fields map[string]any) (string, error) {
	if len(r.key) == 0 {
		return "", fmt.Errorf("未配置加密密钥，无法加密凭证")
	}

	plaintext, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("序列化凭证字段失败: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("初始化AES失败: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("初始化GCM失败: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("生成nonce失败: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}
