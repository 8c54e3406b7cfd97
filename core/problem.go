package core

// ResolvedTerm 是一个策略在所有引用被替换为具体数值数组之后的形态。
// 行 i 始终对应候选池中的第 i 个样本。
//
//   - KindDiversity:    Vectors 为 N x d embedding
//   - KindWeighting:    Values 为 N 个正数权重
//   - KindClassBalance: Vectors 为 N x L label 计数，Target 为长度 L 的目标分布（和为 1）
type ResolvedTerm struct {
	Kind     StrategyKind
	Strength float64
	Source   string // 引用的资源名，仅用于日志

	Vectors [][]float64
	Values  []float64
	Target  []float64
}

// Rows 返回该 term 的行数。
func (t *ResolvedTerm) Rows() int {
	if t.Kind == KindWeighting {
		return len(t.Values)
	}
	return len(t.Vectors)
}

// ResolvedProblem 是 Resolver 的输出、Kernel 的输入；解析完成后视为只读。
type ResolvedProblem struct {
	N     int
	Terms []ResolvedTerm
}
