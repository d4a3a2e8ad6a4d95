package expression

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// barePathPattern 裸路径表达式：整个占位符体是一条路径，不含任何运算符
// 路径首段是输出包中的节点标识，允许连字符（节点ID可能是UUID）
var barePathPattern = regexp.MustCompile(`^[\w$-]+(\.[\w$-]+|\[\d+\])*$`)

// isBarePath 判断占位符体是否为裸路径
func isBarePath(body string) bool {
	return barePathPattern.MatchString(body)
}

// splitPath 将路径拆分为段序列，数组下标独立成段（前缀#）
// foo.bar[0].baz -> [foo bar #0 baz]
func splitPath(path string) []string {
	segments := make([]string, 0, 4)
	for _, part := range strings.Split(path, ".") {
		for {
			idx := strings.IndexByte(part, '[')
			if idx < 0 {
				if part != "" {
					segments = append(segments, part)
				}
				break
			}
			if idx > 0 {
				segments = append(segments, part[:idx])
			}
			end := strings.IndexByte(part, ']')
			segments = append(segments, "#"+part[idx+1:end])
			part = part[end+1:]
		}
	}
	return segments
}

// lookupPath 在输出包上解析路径，返回原始值（保留类型）
// 路径不可解析时返回exists=false，由调用方决定是否作为输入解析错误上报
func lookupPath(path string, bag workflow.OutputBag) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	record, exists := bag.Lookup(segments[0])
	if !exists {
		return nil, false
	}

	var current any = record
	for _, seg := range segments[1:] {
		if strings.HasPrefix(seg, "#") {
			idx, err := strconv.Atoi(seg[1:])
			if err != nil {
				return nil, false
			}
			list, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return nil, false
			}
			current = list[idx]
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, found := obj[seg]
		if !found {
			return nil, false
		}
		current = value
	}
	return current, true
}

// parseNumber 解析数字字面量
func parseNumber(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
