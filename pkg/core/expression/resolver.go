package expression

import (
	"regexp"
	"strings"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// placeholderPattern 非贪婪占位符模式，匹配{{ ... }}
var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// ResolveInputs 解析模板化输入映射（对外导出）
// 对每个字段递归替换{{ ... }}占位符：
//   - 非字符串、非对象、非数组的标量原样通过
//   - 数组逐元素解析
//   - 对象逐键解析；解析结果为空对象的键被整体省略（空对象会破坏外部严格校验）
//   - 字符串若整体恰好是单个占位符，返回求值结果本身（保留原生类型）；
//     否则逐个占位符字符串化后原位替换
func ResolveInputs(inputs map[string]any, bag workflow.OutputBag) (map[string]any, error) {
	resolved, err := resolveValue(inputs, bag)
	if err != nil {
		return nil, err
	}
	result, ok := resolved.(map[string]any)
	if !ok {
		// 顶层输入解析为空对象时返回空映射而非nil
		return map[string]any{}, nil
	}
	return result, nil
}

// resolveValue 递归解析单个值
func resolveValue(value any, bag workflow.OutputBag) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return resolveString(v, bag)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			itemResolved, err := resolveValue(item, bag)
			if err != nil {
				return nil, err
			}
			// 解析为空对象的键整体丢弃
			if obj, isObj := itemResolved.(map[string]any); isObj && len(obj) == 0 {
				continue
			}
			resolved[key] = itemResolved
		}
		if len(resolved) == 0 {
			return map[string]any{}, nil
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			itemResolved, err := resolveValue(item, bag)
			if err != nil {
				return nil, err
			}
			resolved[i] = itemResolved
		}
		return resolved, nil
	default:
		return value, nil
	}
}

// resolveString 解析可能包含占位符的字符串
func resolveString(value string, bag workflow.OutputBag) (any, error) {
	if value == "" {
		return value, nil
	}

	matches := placeholderPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	// 整个字符串（去除首尾空白后）恰好是单个占位符：返回求值结果本身，保留原生类型
	trimmed := strings.TrimSpace(value)
	if len(matches) == 1 {
		m := matches[0]
		if strings.TrimSpace(value[:m[0]]) == "" && strings.TrimSpace(value[m[1]:]) == "" {
			return evaluatePlaceholder(trimmed[2:len(trimmed)-2], bag)
		}
	}

	// 多占位符或混合文本：逐个求值并字符串化替换
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(value[last:m[0]])
		result, err := evaluatePlaceholder(value[m[2]:m[3]], bag)
		if err != nil {
			return nil, err
		}
		sb.WriteString(Stringify(result))
		last = m[1]
	}
	sb.WriteString(value[last:])
	return sb.String(), nil
}

// evaluatePlaceholder 求值单个占位符体
// 裸路径是地面查找，直接返回路径上的原始值（保留类型），不经过表达式求值器；
// 含运算符的占位符则走词法/语法分析后在输出包上求值
func evaluatePlaceholder(body string, bag workflow.OutputBag) (any, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidInputsf("空占位符")
	}

	if isBarePath(body) {
		value, exists := lookupPath(body, bag)
		if !exists {
			return nil, invalidInputsf("路径 %s 不可解析", body)
		}
		return value, nil
	}

	node, err := parseExpression(body)
	if err != nil {
		return nil, err
	}
	return evaluate(node, bag)
}
