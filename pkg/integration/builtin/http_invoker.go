// Package builtin 提供内置的通用HTTP Invoker
// 以输入约定描述请求（url/method/headers/body），支持JSON与HTML两种响应解析模式，
// 让HTTP类集成无需编写Go代码即可接入引擎
package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/LENAX/flow-engine/pkg/core/integration"
)

// 高并发HTTP客户端（支持50+并发连接）
// 基于DefaultTransport修改，保留代理和DNS配置
var defaultClient = func() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 100
	transport.MaxConnsPerHost = 100
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}()

// HTTPInvoker 内置HTTP调用器（对外导出）
// 输入约定：
//
//	url       请求地址（必填）
//	method    请求方法，默认GET
//	headers   附加请求头映射
//	query     查询参数映射
//	body      请求体（映射或数组时按JSON序列化）
//	parse     响应解析模式：json（默认）/ html / text
//	selectors HTML模式的字段选择器映射（字段名 -> CSS选择器，可用"选择器@属性名"取属性）
//	items_selector / item_fields  HTML模式的条目列表抽取
//
// 凭证映射中的authorization字段注入Authorization请求头，headers字段合并为请求头
type HTTPInvoker struct {
	client *http.Client
}

// NewHTTPInvoker 创建HTTPInvoker实例（对外导出的工厂方法）
// client为nil时使用内置高并发客户端
func NewHTTPInvoker(client *http.Client) *HTTPInvoker {
	if client == nil {
		client = defaultClient
	}
	return &HTTPInvoker{client: client}
}

// Invoke 执行一次HTTP调用
func (h *HTTPInvoker) Invoke(ctx context.Context, req *integration.InvocationRequest) (*integration.InvocationResult, error) {
	rawURL, ok := req.Inputs["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("HTTP调用缺少url输入")
	}

	method := http.MethodGet
	if m, ok := req.Inputs["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	body, contentType, err := buildBody(req.Inputs["body"])
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("构造HTTP请求失败: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	applyQuery(httpReq, req.Inputs["query"])
	applyHeaders(httpReq, req.Inputs["headers"])
	applyCredentials(httpReq, req.Credentials)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, integration.NewInvocationError(fmt.Sprintf("HTTP请求失败: %v", err), "")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, integration.NewInvocationError(fmt.Sprintf("读取响应失败: %v", err), "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, integration.NewInvocationError(
			fmt.Sprintf("HTTP状态码异常: %d", resp.StatusCode), string(respBody))
	}

	parseMode, _ := req.Inputs["parse"].(string)
	switch parseMode {
	case "", "json":
		return parseJSONResponse(respBody)
	case "html":
		return parseHTMLResponse(respBody, req.Inputs)
	case "text":
		return &integration.InvocationResult{
			Outputs: map[string]any{"text": string(respBody)},
		}, nil
	default:
		return nil, fmt.Errorf("不支持的响应解析模式: %s", parseMode)
	}
}

// buildBody 构造请求体
func buildBody(raw any) (io.Reader, string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, "", nil
	case string:
		if v == "" {
			return nil, "", nil
		}
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("序列化请求体失败: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// applyQuery 附加查询参数
func applyQuery(req *http.Request, raw any) {
	params, ok := raw.(map[string]any)
	if !ok || len(params) == 0 {
		return
	}
	query := req.URL.Query()
	for key, value := range params {
		query.Set(key, fmt.Sprintf("%v", value))
	}
	req.URL.RawQuery = query.Encode()
}

// applyHeaders 附加请求头
func applyHeaders(req *http.Request, raw any) {
	headers, ok := raw.(map[string]any)
	if !ok {
		return
	}
	for key, value := range headers {
		req.Header.Set(key, fmt.Sprintf("%v", value))
	}
}

// applyCredentials 注入凭证
// authorization字段注入Authorization请求头，headers字段合并为请求头（覆盖输入中的同名头）
func applyCredentials(req *http.Request, creds map[string]any) {
	if creds == nil {
		return
	}
	if auth, ok := creds["authorization"].(string); ok && auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if headers, ok := creds["headers"].(map[string]any); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}
}

// parseJSONResponse 解析JSON响应
// 顶层对象直接作为输出记录；顶层数组包装为items字段，符合触发器轮询约定
func parseJSONResponse(body []byte) (*integration.InvocationResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, integration.NewInvocationError(
			fmt.Sprintf("解析JSON响应失败: %v", err), string(body))
	}
	switch v := parsed.(type) {
	case map[string]any:
		return &integration.InvocationResult{Outputs: v}, nil
	case []any:
		return &integration.InvocationResult{Outputs: map[string]any{"items": v}}, nil
	default:
		return &integration.InvocationResult{Outputs: map[string]any{"value": v}}, nil
	}
}

// parseHTMLResponse 使用goquery解析HTML响应
func parseHTMLResponse(body []byte, inputs map[string]any) (*integration.InvocationResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, integration.NewInvocationError(
			fmt.Sprintf("解析HTML响应失败: %v", err), string(body))
	}

	outputs := map[string]any{}

	// 单字段抽取
	if selectors, ok := inputs["selectors"].(map[string]any); ok {
		for field, rawSelector := range selectors {
			selector, ok := rawSelector.(string)
			if !ok {
				return nil, fmt.Errorf("选择器 %s 必须是字符串", field)
			}
			outputs[field] = extractSelection(doc.Selection, selector)
		}
	}

	// 条目列表抽取
	if itemsSelector, ok := inputs["items_selector"].(string); ok && itemsSelector != "" {
		itemFields, _ := inputs["item_fields"].(map[string]any)
		items := make([]any, 0)
		doc.Find(itemsSelector).Each(func(_ int, sel *goquery.Selection) {
			item := map[string]any{}
			for field, rawSelector := range itemFields {
				if selector, ok := rawSelector.(string); ok {
					item[field] = extractSelection(sel, selector)
				}
			}
			items = append(items, item)
		})
		outputs["items"] = items
	}

	return &integration.InvocationResult{Outputs: outputs}, nil
}

// extractSelection 在选区内按CSS选择器抽取文本或属性
// 选择器后缀"@属性名"取属性值（如"a.link@href"），否则取去除首尾空白的文本
func extractSelection(root *goquery.Selection, selector string) string {
	attr := ""
	if at := strings.LastIndex(selector, "@"); at > 0 {
		attr = selector[at+1:]
		selector = selector[:at]
	}

	var sel *goquery.Selection
	if selector == "" || selector == "." {
		sel = root
	} else {
		sel = root.Find(selector).First()
	}
	if attr != "" {
		value, _ := sel.Attr(attr)
		return value
	}
	return strings.TrimSpace(sel.Text())
}
