package workflow

// OutputBag 输出包：上游节点ID -> 该节点输出记录的映射（对外导出）
// 沿单条执行路径累积并传递给后继节点；分支扩展前先复制，绝不跨分支共享可变状态，
// 因此任一节点拿到的输出包恰好包含其到达路径上所有祖先的输出（不含兄弟分支）
type OutputBag map[string]map[string]any

// Extend 以不可变方式扩展输出包（对外导出）
// 返回包含新节点输出的副本，原输出包不被修改
func (b OutputBag) Extend(nodeID string, outputs map[string]any) OutputBag {
	next := make(OutputBag, len(b)+1)
	for k, v := range b {
		next[k] = v
	}
	next[nodeID] = outputs
	return next
}

// Lookup 查询指定节点的输出记录（对外导出）
func (b OutputBag) Lookup(nodeID string) (map[string]any, bool) {
	out, exists := b[nodeID]
	return out, exists
}
