// Package expression 提供模板化输入解析：扫描{{ ... }}占位符，
// 在累积输出包上求值一个小型表达式语言（路径查找、算术比较运算、内置函数）
package expression

import (
	"errors"
	"fmt"
)

// ErrInvalidInputs 输入解析失败（对外导出）
// 包括路径不可解析、表达式语法错误、函数参数错误等，调用方据此将节点/触发标记为失败
var ErrInvalidInputs = errors.New("输入解析失败")

// invalidInputsf 构造带上下文的输入解析错误
func invalidInputsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInputs, fmt.Sprintf(format, args...))
}
