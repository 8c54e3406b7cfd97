package core

import "time"

// SelectionConfig 是一次选择请求的完整描述，每次调用组装一次。
//
// 约束：
//   - ResultTagName 在 Scope 下不能已存在
//   - K > 0
type SelectionConfig struct {
	// Scope 是 tag 的命名空间（通常是数据集 ID）
	Scope string

	// CandidatePool 候选样本 ID（有序），定义索引空间 [0, N)
	CandidatePool []string

	// Strategies 有序策略列表
	Strategies []Strategy

	// K 期望选择的样本数
	K int

	// ResultTagName 结果 tag 名称
	ResultTagName string
}

// SelectionResult 是按选取顺序排列的样本 ID，写入 tag 后即丢弃。
type SelectionResult struct {
	TagName   string
	SampleIDs []string // 选取顺序（非索引顺序）
	Indices   []int    // 对应候选池中的索引
}

// Tag 是选择结果的持久化形式：一个新 tag 及其全部成员。
type Tag struct {
	ID        string
	Scope     string
	Name      string
	SampleIDs []string
	CreatedAt time.Time
}
