package expression

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// evaluate 在输出包上求值AST节点
func evaluate(node exprNode, bag workflow.OutputBag) (any, error) {
	switch n := node.(type) {
	case *literalNode:
		return n.value, nil
	case *pathNode:
		value, exists := lookupPath(n.path, bag)
		if !exists {
			return nil, invalidInputsf("路径 %s 不可解析", n.path)
		}
		return value, nil
	case *unaryNode:
		return evaluateUnary(n, bag)
	case *binaryNode:
		return evaluateBinary(n, bag)
	case *callNode:
		return evaluateCall(n, bag)
	default:
		return nil, invalidInputsf("未知的表达式节点类型 %T", node)
	}
}

func evaluateUnary(n *unaryNode, bag workflow.OutputBag) (any, error) {
	operand, err := evaluate(n.operand, bag)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "-":
		num, ok := toNumber(operand)
		if !ok {
			return nil, invalidInputsf("一元负号作用于非数字值 %v", operand)
		}
		return -num, nil
	case "!":
		return !truthy(operand), nil
	}
	return nil, invalidInputsf("未知的一元运算符 %s", n.op)
}

func evaluateBinary(n *binaryNode, bag workflow.OutputBag) (any, error) {
	left, err := evaluate(n.left, bag)
	if err != nil {
		return nil, err
	}

	// 逻辑运算短路
	switch n.op {
	case "&&":
		if !truthy(left) {
			return false, nil
		}
		right, err := evaluate(n.right, bag)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "||":
		if truthy(left) {
			return true, nil
		}
		right, err := evaluate(n.right, bag)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := evaluate(n.right, bag)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	}

	// "+"优先数字相加，任一侧为字符串时退化为拼接
	if n.op == "+" {
		if _, leftIsStr := left.(string); leftIsStr {
			return Stringify(left) + Stringify(right), nil
		}
		if _, rightIsStr := right.(string); rightIsStr {
			return Stringify(left) + Stringify(right), nil
		}
	}

	leftNum, leftOK := toNumber(left)
	rightNum, rightOK := toNumber(right)
	if !leftOK || !rightOK {
		// 字符串比较
		leftStr, lok := left.(string)
		rightStr, rok := right.(string)
		if lok && rok {
			switch n.op {
			case ">":
				return leftStr > rightStr, nil
			case "<":
				return leftStr < rightStr, nil
			case ">=":
				return leftStr >= rightStr, nil
			case "<=":
				return leftStr <= rightStr, nil
			}
		}
		return nil, invalidInputsf("运算符 %s 作用于不可计算的值: %v, %v", n.op, left, right)
	}

	switch n.op {
	case "+":
		return leftNum + rightNum, nil
	case "-":
		return leftNum - rightNum, nil
	case "*":
		return leftNum * rightNum, nil
	case "/":
		if rightNum == 0 {
			return nil, invalidInputsf("除数为零")
		}
		return leftNum / rightNum, nil
	case "%":
		if rightNum == 0 {
			return nil, invalidInputsf("除数为零")
		}
		return float64(int64(leftNum) % int64(rightNum)), nil
	case ">":
		return leftNum > rightNum, nil
	case "<":
		return leftNum < rightNum, nil
	case ">=":
		return leftNum >= rightNum, nil
	case "<=":
		return leftNum <= rightNum, nil
	}
	return nil, invalidInputsf("未知的二元运算符 %s", n.op)
}

// evaluateCall 求值内置函数调用
// 支持 substring(str,start,end)、lowercase(str)、uppercase(str)、extract(str,template,replace)
func evaluateCall(n *callNode, bag workflow.OutputBag) (any, error) {
	args := make([]any, len(n.args))
	for i, argNode := range n.args {
		arg, err := evaluate(argNode, bag)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	switch n.name {
	case "substring":
		if len(args) != 3 {
			return nil, invalidInputsf("substring需要3个参数，实际%d个", len(args))
		}
		str := Stringify(args[0])
		start, ok1 := toNumber(args[1])
		end, ok2 := toNumber(args[2])
		if !ok1 || !ok2 {
			return nil, invalidInputsf("substring的起止位置必须为数字")
		}
		s, e := int(start), int(end)
		if s < 0 || e > len(str) || s > e {
			return nil, invalidInputsf("substring区间[%d,%d)越界（长度%d）", s, e, len(str))
		}
		return str[s:e], nil
	case "lowercase":
		if len(args) != 1 {
			return nil, invalidInputsf("lowercase需要1个参数，实际%d个", len(args))
		}
		return strings.ToLower(Stringify(args[0])), nil
	case "uppercase":
		if len(args) != 1 {
			return nil, invalidInputsf("uppercase需要1个参数，实际%d个", len(args))
		}
		return strings.ToUpper(Stringify(args[0])), nil
	case "extract":
		if len(args) != 3 {
			return nil, invalidInputsf("extract需要3个参数，实际%d个", len(args))
		}
		return extract(Stringify(args[0]), Stringify(args[1]), Stringify(args[2]))
	default:
		return nil, invalidInputsf("未知的内置函数 %s", n.name)
	}
}

// wildcardPattern 转义后的通配符标记序列（***转义后为\*\*\*）
var wildcardPattern = regexp.MustCompile(`(\\\*){3,}`)

// extract 按模板捕获并替换
// template中的***是通配捕获组：先整体转义，再把连续的通配符标记翻译成(.*)，
// 最后在str上执行替换，replace中可引用$1、$2等捕获组
func extract(str, template, replace string) (string, error) {
	pattern := wildcardPattern.ReplaceAllString(regexp.QuoteMeta(template), "(.*)")
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return "", invalidInputsf("extract模板 %q 无效: %v", template, err)
	}
	if !re.MatchString(str) {
		return "", invalidInputsf("extract模板 %q 与输入 %q 不匹配", template, str)
	}
	return re.ReplaceAllString(str, replace), nil
}

// toNumber 尝试将值转换为数字
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		num, err := v.Float64()
		return num, err == nil
	case string:
		num, err := strconv.ParseFloat(v, 64)
		return num, err == nil
	default:
		return 0, false
	}
}

// truthy 判断值的真值性
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		if num, ok := toNumber(v); ok {
			return num != 0
		}
		return true
	}
}

// equalValues 等值比较，数字按数值比较，其余按字符串形式比较
func equalValues(left, right any) bool {
	leftNum, lok := toNumber(left)
	rightNum, rok := toNumber(right)
	if lok && rok {
		return leftNum == rightNum
	}
	return Stringify(left) == Stringify(right)
}

// Stringify 将任意求值结果转为字符串形式（对外导出）
// 对象和数组序列化为JSON文本，时间转为ISO-8601文本，数字去除多余小数位
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
