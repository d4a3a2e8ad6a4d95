package expression

import (
	"errors"
	"testing"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

func testBag() workflow.OutputBag {
	return workflow.OutputBag{
		"foo": {
			"bar": 5,
			"baz": 3,
			"str": "Hello World",
			"obj": map[string]any{"nested": "value"},
			"arr": []any{"first", "second"},
		},
	}
}

// TestResolveInputs_WholePlaceholderPreservesType 测试整占位符保留原生类型
func TestResolveInputs_WholePlaceholderPreservesType(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": "{{ foo.bar }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != 5 {
		t.Errorf("期望整占位符保留数字类型 5, 实际 = %#v", resolved["value"])
	}

	resolved, err = ResolveInputs(map[string]any{"value": "{{ foo.obj }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	obj, ok := resolved["value"].(map[string]any)
	if !ok || obj["nested"] != "value" {
		t.Errorf("期望整占位符保留对象类型, 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_MixedStringStringifies 测试混合文本字符串化替换
func TestResolveInputs_MixedStringStringifies(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": "Value: {{ foo.bar }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != "Value: 5" {
		t.Errorf("期望 'Value: 5', 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_Arithmetic 测试占位符内的算术表达式
func TestResolveInputs_Arithmetic(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": "{{ foo.bar - foo.baz }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != float64(2) {
		t.Errorf("期望 foo.bar - foo.baz = 2, 实际 = %#v", resolved["value"])
	}

	resolved, err = ResolveInputs(map[string]any{"value": "{{ (foo.bar + foo.baz) * 2 }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != float64(16) {
		t.Errorf("期望 (5+3)*2 = 16, 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_Comparison 测试比较与逻辑运算
func TestResolveInputs_Comparison(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": "{{ foo.bar > foo.baz && foo.baz > 0 }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != true {
		t.Errorf("期望 true, 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_QuotedLiteralNotSubstituted 测试字符串字面量内的路径样文本不被替换
func TestResolveInputs_QuotedLiteralNotSubstituted(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": `{{ 'foo.bar is ' + foo.bar }}`}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != "foo.bar is 5" {
		t.Errorf("期望引号内路径样文本保持原样, 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_EmptyObjectDropped 测试解析为空对象的键被整体省略
func TestResolveInputs_EmptyObjectDropped(t *testing.T) {
	inputs := map[string]any{
		"keep":  "static",
		"empty": map[string]any{},
		"nested": map[string]any{
			"inner": map[string]any{},
		},
	}
	resolved, err := ResolveInputs(inputs, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["keep"] != "static" {
		t.Errorf("期望保留静态键, 实际 = %#v", resolved["keep"])
	}
	if _, exists := resolved["empty"]; exists {
		t.Error("期望空对象键被省略，但仍然存在")
	}
	if _, exists := resolved["nested"]; exists {
		t.Error("期望解析后为空的嵌套对象键被省略，但仍然存在")
	}
}

// TestResolveInputs_ArrayElementwise 测试数组逐元素解析
func TestResolveInputs_ArrayElementwise(t *testing.T) {
	inputs := map[string]any{
		"list": []any{"{{ foo.bar }}", "Value: {{ foo.baz }}", 42},
	}
	resolved, err := ResolveInputs(inputs, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	list, ok := resolved["list"].([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("期望长度为3的数组, 实际 = %#v", resolved["list"])
	}
	if list[0] != 5 || list[1] != "Value: 3" || list[2] != 42 {
		t.Errorf("数组元素解析不符合预期: %#v", list)
	}
}

// TestResolveInputs_ScalarPassthrough 测试标量原样通过
func TestResolveInputs_ScalarPassthrough(t *testing.T) {
	inputs := map[string]any{"num": 7, "flag": true, "nothing": nil}
	resolved, err := ResolveInputs(inputs, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["num"] != 7 || resolved["flag"] != true || resolved["nothing"] != nil {
		t.Errorf("标量未原样通过: %#v", resolved)
	}
}

// TestResolveInputs_PathIndex 测试数组下标路径
func TestResolveInputs_PathIndex(t *testing.T) {
	resolved, err := ResolveInputs(map[string]any{"value": "{{ foo.arr[1] }}"}, testBag())
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != "second" {
		t.Errorf("期望 'second', 实际 = %#v", resolved["value"])
	}
}

// TestResolveInputs_UnresolvablePathFails 测试不可解析路径返回类型化错误
func TestResolveInputs_UnresolvablePathFails(t *testing.T) {
	_, err := ResolveInputs(map[string]any{"value": "{{ missing.path }}"}, testBag())
	if err == nil {
		t.Fatal("期望不可解析路径返回错误，但成功了")
	}
	if !errors.Is(err, ErrInvalidInputs) {
		t.Errorf("期望错误类型为ErrInvalidInputs, 实际 = %v", err)
	}

	_, err = ResolveInputs(map[string]any{"value": "{{ missing.path + 1 }}"}, testBag())
	if !errors.Is(err, ErrInvalidInputs) {
		t.Errorf("期望表达式内不可解析路径同样返回ErrInvalidInputs, 实际 = %v", err)
	}
}

// TestBuiltinFunctions 测试内置函数
func TestBuiltinFunctions(t *testing.T) {
	bag := testBag()

	cases := []struct {
		name     string
		input    string
		expected any
	}{
		{"substring", "{{ substring(foo.str, 0, 5) }}", "Hello"},
		{"lowercase", "{{ lowercase(foo.str) }}", "hello world"},
		{"uppercase", "{{ uppercase(foo.str) }}", "HELLO WORLD"},
		{"extract", "{{ extract('order-12345-shipped', 'order-***-shipped', '$1') }}", "12345"},
		{"嵌套调用", "{{ uppercase(substring(foo.str, 6, 11)) }}", "WORLD"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := ResolveInputs(map[string]any{"value": tc.input}, bag)
			if err != nil {
				t.Fatalf("解析输入失败: %v", err)
			}
			if resolved["value"] != tc.expected {
				t.Errorf("期望 %#v, 实际 = %#v", tc.expected, resolved["value"])
			}
		})
	}
}

// TestExtract_TemplateMismatch 测试extract模板不匹配时报错
func TestExtract_TemplateMismatch(t *testing.T) {
	_, err := ResolveInputs(map[string]any{"value": "{{ extract(foo.str, 'order-***-shipped', '$1') }}"}, testBag())
	if !errors.Is(err, ErrInvalidInputs) {
		t.Errorf("期望模板不匹配返回ErrInvalidInputs, 实际 = %v", err)
	}
}

// TestResolveString_MultiplePlaceholders 测试多占位符原位替换
func TestResolveString_MultiplePlaceholders(t *testing.T) {
	resolved, err := ResolveInputs(
		map[string]any{"value": "{{ foo.bar }} + {{ foo.baz }} = {{ foo.bar + foo.baz }}"},
		testBag(),
	)
	if err != nil {
		t.Fatalf("解析输入失败: %v", err)
	}
	if resolved["value"] != "5 + 3 = 8" {
		t.Errorf("期望 '5 + 3 = 8', 实际 = %#v", resolved["value"])
	}
}
