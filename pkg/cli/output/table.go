package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table 简单表格输出
// 列宽按字符数而非字节数计算，中文单元格也能对齐
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable 创建表格
func NewTable(headers []string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		widths:  widths,
	}
}

// AddRow 添加行
func (t *Table) AddRow(row []string) {
	// 更新列宽
	for i, cell := range row {
		if width := utf8.RuneCountInString(cell); i < len(t.widths) && width > t.widths[i] {
			t.widths[i] = width
		}
	}
	t.rows = append(t.rows, row)
}

// Render 渲染表格
func (t *Table) Render() {
	headerColor := color.New(color.FgCyan, color.Bold)
	for i, h := range t.headers {
		headerColor.Print(pad(h, t.widths[i]))
	}
	fmt.Println()

	for i := range t.headers {
		fmt.Print(strings.Repeat("-", t.widths[i]))
		fmt.Print("  ")
	}
	fmt.Println()

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(t.widths) {
				fmt.Print(pad(cell, t.widths[i]))
			}
		}
		fmt.Println()
	}
}

// pad 左对齐填充到指定字符宽度，额外加两格列间距
func pad(s string, width int) string {
	gap := width - utf8.RuneCountInString(s) + 2
	if gap < 2 {
		gap = 2
	}
	return s + strings.Repeat(" ", gap)
}
